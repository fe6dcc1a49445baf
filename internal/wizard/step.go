package wizard

// StepKey identifies a step and the section of Data it owns.
type StepKey string

const (
	StepDetails   StepKey = "details"
	StepDocuments StepKey = "documents"
	StepReview    StepKey = "review"
	StepChecks    StepKey = "checks"
	StepResults   StepKey = "results"
)

// Step is one screen of the wizard.
type Step struct {
	Key   StepKey `json:"key"`
	Title string  `json:"title"`
}

// ReferenceSteps is the five-step intake flow.
func ReferenceSteps() []Step {
	return []Step{
		{Key: StepDetails, Title: "Employment details"},
		{Key: StepDocuments, Title: "Upload documents"},
		{Key: StepReview, Title: "Review extracted data"},
		{Key: StepChecks, Title: "Run checks"},
		{Key: StepResults, Title: "Results"},
	}
}

// StepView is a step with its derived state.
type StepView struct {
	Index int       `json:"index"`
	Key   StepKey   `json:"key"`
	Title string    `json:"title"`
	State StepState `json:"state"`
}

func viewSteps(steps []Step, current int) []StepView {
	out := make([]StepView, len(steps))
	for i, s := range steps {
		out[i] = StepView{
			Index: i + 1,
			Key:   s.Key,
			Title: s.Title,
			State: StateOf(current, i+1, len(steps)),
		}
	}
	return out
}
