package wizard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/paycheck/internal/intake"
)

func TestSubmitForm_ReachesChecks(t *testing.T) {
	form, err := intake.LoadForm(filepath.Join("..", "..", "testdata", "fixtures", "intake", "reference.yaml"))
	require.NoError(t, err)

	c := NewController(&fakePipeline{})
	require.NoError(t, SubmitForm(c, form))

	view := c.Snapshot()
	assert.Equal(t, StepChecks, view.Step)
	assert.Equal(t, 4, view.Current)
	require.NotNil(t, view.Data.Details)
	assert.Equal(t, "Harbourside Grocers Pty Ltd", view.Data.Details.Organisation.Name)
	require.NotNil(t, view.Data.Review)
	assert.Len(t, view.Data.Review.Fields, 2)
}

func TestSubmitForm_StopsAtFirstRejectedStep(t *testing.T) {
	form := &intake.Form{
		Details:   detailsPayload().Details,
		Documents: intake.Documents{Contract: "doc-contract-0801"},
		Review:    reviewPayload().Review,
	}

	c := NewController(&fakePipeline{})
	err := SubmitForm(c, form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepDocuments, verr.Step)
	assert.Equal(t, 2, c.Snapshot().Current)
	assert.Nil(t, c.Snapshot().Data.Review)
}
