package wizard

import "github.com/dusk-indust/paycheck/internal/intake"

// SubmitForm completes the details, documents and review steps from a form,
// leaving the session on the checks step. It stops at the first step that
// rejects its payload.
func SubmitForm(c *Controller, f *intake.Form) error {
	for _, p := range []Payload{
		DetailsPayload{Details: f.Details},
		DocumentsPayload{Documents: f.Documents},
		ReviewPayload{Review: f.Review},
	} {
		if err := c.Advance(p); err != nil {
			return err
		}
	}
	return nil
}
