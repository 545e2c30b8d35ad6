// Package prompt builds the model prompts for profile extraction and grounded answers.
package prompt

import (
	"fmt"
	"strings"

	"hmo-assistant-be/pkg/profile"
)

// Source is one retrieved passage as shown to the answer model.
type Source struct {
	Title string
	Text  string
	HMO   string
	Tier  string
}

// ExtractionInput is what the extraction model gets to see.
type ExtractionInput struct {
	Transcript string
	Known      profile.UserProfile
	// LatestOnly restricts extraction to the final user message (summary review).
	LatestOnly bool
}

// BuildExtraction asks for a single JSON object with every profile field.
func BuildExtraction(in ExtractionInput) string {
	var p strings.Builder

	p.WriteString("<task>\n")
	p.WriteString("You extract the personal and insurance details of a patient of an Israeli HMO from a conversation.\n")
	p.WriteString("The user may write Hebrew, English or both, and may give several details at once or in any order.\n")
	p.WriteString("</task>\n\n")

	p.WriteString("<known_profile>\n")
	for _, f := range profile.Fields {
		v := in.Known.Get(f)
		if v == "" {
			v = "null"
		}
		fmt.Fprintf(&p, "%s: %s\n", f, v)
	}
	p.WriteString("</known_profile>\n\n")

	p.WriteString("<conversation>\n")
	p.WriteString(in.Transcript)
	p.WriteString("</conversation>\n\n")

	p.WriteString("<rules>\n")
	if in.LatestOnly {
		p.WriteString("- The user is reviewing a summary of the known profile. Only report values the LAST user message states or changes.\n")
	} else {
		p.WriteString("- Report every value the user stated anywhere in the conversation.\n")
	}
	p.WriteString("- Copy values as the user wrote them; do not translate, guess or complete them.\n")
	p.WriteString("- Use null for anything the user did not state.\n")
	p.WriteString("- national_id is the Israeli ID number (teudat zehut). date_of_birth keeps the user's format.\n")
	p.WriteString("- hmo is one of Clalit, Maccabi, Meuhedet. insurance_tier is one of Gold, Silver, Bronze.\n")
	p.WriteString("- List in \"cleared\" the fields the user explicitly says are wrong without giving a new value.\n")
	p.WriteString("- Put a short note in \"ambiguous\" when a statement could belong to more than one field.\n")
	p.WriteString("</rules>\n\n")

	p.WriteString("<output_format>\n")
	p.WriteString("Return ONLY a JSON object:\n")
	p.WriteString(`{"first_name": string|null, "last_name": string|null, "national_id": string|null, "gender": string|null, "date_of_birth": string|null, "hmo": string|null, "insurance_tier": string|null, "cleared": [string], "ambiguous": string|null}`)
	p.WriteString("\n</output_format>")

	return p.String()
}

// QAInput is what the answer model gets to see.
type QAInput struct {
	Question string
	Sources  []Source
	HMO      string
	Tier     string
	Hebrew   bool
}

// BuildGroundedQA restricts the answer to the numbered sources and asks for [n] markers.
func BuildGroundedQA(in QAInput) string {
	var p strings.Builder

	p.WriteString("<grounded_reference_material>\n")
	p.WriteString("CRITICAL: This is the ONLY data source. Do NOT use outside knowledge.\n\n")
	for i, s := range in.Sources {
		scope := "general"
		if s.HMO != "" {
			scope = s.HMO
			if s.Tier != "" {
				scope += " / " + s.Tier
			}
		}
		fmt.Fprintf(&p, "[%d] %s (%s)\n%s\n\n", i+1, s.Title, scope, strings.TrimSpace(s.Text))
	}
	p.WriteString("</grounded_reference_material>\n\n")

	p.WriteString("<member>\n")
	fmt.Fprintf(&p, "HMO: %s\nInsurance tier: %s\n", in.HMO, in.Tier)
	p.WriteString("</member>\n\n")

	p.WriteString("<task_instructions>\n")
	p.WriteString("Answer the member's question about medical services using only the sources above.\n")
	p.WriteString("1. Prefer details that apply to the member's HMO and tier; mention when a detail is general.\n")
	p.WriteString("2. Cite every fact with the source number in square brackets, e.g. [1].\n")
	p.WriteString("3. If the sources do not answer the question, say so plainly.\n")
	if in.Hebrew {
		p.WriteString("4. Answer in Hebrew.\n")
	} else {
		p.WriteString("4. Answer in English.\n")
	}
	p.WriteString("</task_instructions>\n\n")

	p.WriteString("<user_question>\n")
	p.WriteString(in.Question)
	p.WriteString("\n</user_question>")

	return p.String()
}
