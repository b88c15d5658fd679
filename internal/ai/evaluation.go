package ai

// Decision is the hiring verdict derived from the score.
type Decision string

const (
	DecisionUnknown    Decision = ""
	DecisionNoHire     Decision = "No Hire"
	DecisionBorderline Decision = "No Hire / On the Fence"
	DecisionHire       Decision = "Hire"
	DecisionStrongHire Decision = "Strong Hire"
)

const (
	MinScore = 1
	MaxScore = 10
)

// Band is one row of the grading rubric.
type Band struct {
	Min, Max int
	Decision Decision
	Meaning  string
}

// Rubric is the fixed grading scale shared by the scoring prompt and DecisionForScore.
var Rubric = []Band{
	{Min: 1, Max: 4, Decision: DecisionNoHire, Meaning: "Major knowledge gaps"},
	{Min: 5, Max: 6, Decision: DecisionBorderline, Meaning: "Weak answers"},
	{Min: 7, Max: 8, Decision: DecisionHire, Meaning: "Competent, meets requirements"},
	{Min: 9, Max: 10, Decision: DecisionStrongHire, Meaning: "Exceptional"},
}

// Evaluation is the structured report for one interview.
type Evaluation struct {
	Score      int      `json:"score"`
	Decision   Decision `json:"decision"`
	Tone       string   `json:"tone"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Summary    string   `json:"summary"`
	Raw        string   `json:"-"`
}

// DecisionForScore maps a score to its rubric band. Scores outside
// MinScore..MaxScore have no band.
func DecisionForScore(score int) (Decision, bool) {
	for _, band := range Rubric {
		if score >= band.Min && score <= band.Max {
			return band.Decision, true
		}
	}
	return DecisionUnknown, false
}
