// Package hacks defines the five prompt postscripts and the milestone
// tracker that decides when each one fires. Postscripts ride along on gate
// decisions; they never change the decision itself.
package hacks

// Hack is one injectable postscript keyed to a progress milestone.
type Hack struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Milestone  int      `json:"milestone"`
	Postscript string   `json:"postscript"`
	Enabled    bool     `json:"enabled"`
	UseWhen    []string `json:"use_when,omitempty"`
	// Fallback replaces Postscript in hosts that cannot satisfy its
	// requirement (only web-backed carries one).
	Fallback string `json:"fallback,omitempty"`
	// Enhanced is an optional stronger variant appended on request.
	Enhanced string `json:"enhanced,omitempty"`
}

// Postscript text for each built-in hack, verbatim.
const (
	clarifyText = "Ask me clarifying questions until you are 95% confident you understand what I want before generating the final output."

	webBackedText     = "Before answering, search the web for the most recent and credible information. Include sources and a timestamp."
	webBackedFallback = "If you cannot browse, tell me exactly what you would search for, which sources you would trust most, and what might be outdated."

	selfGradeText = "Before answering, evaluate your answer for accuracy, completeness, usefulness, and clarity until it is at least 9 out of 10 in each category."

	expertPanelText = "Answer using a 3-expert panel: a practitioner, a skeptic, and an editor. Show where they disagree, then synthesize one final answer with the best tradeoffs."

	devilsAdvocateText     = "After generating your answer, provide a critique of your own response from the perspective of a skeptic. Highlight potential biases, missing angles, or logical gaps."
	devilsAdvocateEnhanced = "Assume my plan fails. List the top 10 reasons and how to mitigate each."
)

// Milestones are the progress percentages at which hacks fire.
var Milestones = []int{20, 40, 60, 80, 100}

// Defaults returns the built-in hack set. The 3-expert panel starts
// disabled; it is the heaviest of the five.
func Defaults() []Hack {
	return []Hack{
		{
			ID: "clarify", Name: "Clarify", Milestone: 20, Enabled: true,
			Postscript: clarifyText,
			UseWhen: []string{
				"Task has hidden preferences (tone, audience, constraints)",
				"Wrong assumptions would waste time",
			},
		},
		{
			ID: "web_backed", Name: "Web-backed", Milestone: 40, Enabled: true,
			Postscript: webBackedText,
			Fallback:   webBackedFallback,
			UseWhen: []string{
				"Time-sensitive data (pricing, laws, product features)",
				"You want receipts, not vibes",
			},
		},
		{
			ID: "self_grade", Name: "Self-grade", Milestone: 60, Enabled: true,
			Postscript: selfGradeText,
			UseWhen: []string{
				"Need polished deliverable (strategy, pitch, SOP)",
				"Hate re-prompting for obvious fixes",
			},
		},
		{
			ID: "expert_panel", Name: "3-Expert Panel", Milestone: 80, Enabled: false,
			Postscript: expertPanelText,
			UseWhen: []string{
				"Making decisions and want tradeoffs",
				"Want fewer blind spots",
			},
		},
		{
			ID: "devils_advocate", Name: "Devil's Advocate", Milestone: 100, Enabled: true,
			Postscript: devilsAdvocateText,
			Enhanced:   devilsAdvocateEnhanced,
			UseWhen: []string{
				"Brainstorming, decision-making, sanity-checking",
				"Want to catch weak logic before acting",
			},
		},
	}
}

// ByID returns the hack with the given id from set, or nil.
func ByID(set []Hack, id string) *Hack {
	for i := range set {
		if set[i].ID == id {
			return &set[i]
		}
	}
	return nil
}
