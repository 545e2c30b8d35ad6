package response

import (
	"fmt"
	"strings"

	"hmo-assistant-be/pkg/profile"
	"hmo-assistant-be/pkg/store"
)

type label struct {
	he, en string
}

var fieldLabels = map[profile.Field]label{
	profile.FieldFirstName:     {"שם פרטי", "First name"},
	profile.FieldLastName:      {"שם משפחה", "Last name"},
	profile.FieldNationalID:    {"מספר תעודת זהות", "ID number"},
	profile.FieldGender:        {"מגדר", "Gender"},
	profile.FieldDateOfBirth:   {"תאריך לידה", "Date of birth"},
	profile.FieldHMO:           {"קופת חולים", "HMO"},
	profile.FieldInsuranceTier: {"מסלול ביטוח", "Insurance tier"},
}

var fieldHints = map[profile.Field]label{
	profile.FieldFirstName:     {"שם פרטי", "your first name"},
	profile.FieldLastName:      {"שם משפחה", "your last name"},
	profile.FieldNationalID:    {"מספר תעודת זהות (9 ספרות)", "your ID number (9 digits)"},
	profile.FieldGender:        {"מגדר (זכר/נקבה)", "your gender (male/female)"},
	profile.FieldDateOfBirth:   {"תאריך לידה (DD/MM/YYYY)", "your date of birth (DD/MM/YYYY)"},
	profile.FieldHMO:           {"קופת חולים (כללית, מכבי או מאוחדת)", "your HMO (Clalit, Maccabi or Meuhedet)"},
	profile.FieldInsuranceTier: {"מסלול ביטוח (זהב, כסף או ארד)", "your insurance tier (Gold, Silver or Bronze)"},
}

var valueLabels = map[string]label{
	string(profile.GenderMale):   {"זכר", "Male"},
	string(profile.GenderFemale): {"נקבה", "Female"},
	string(profile.HMOClalit):    {"כללית", "Clalit"},
	string(profile.HMOMaccabi):   {"מכבי", "Maccabi"},
	string(profile.HMOMeuhedet):  {"מאוחדת", "Meuhedet"},
	string(profile.TierGold):     {"זהב", "Gold"},
	string(profile.TierSilver):   {"כסף", "Silver"},
	string(profile.TierBronze):   {"ארד", "Bronze"},
}

func pick(l label, lang store.Language) string {
	if lang == store.LanguageEnglish {
		return l.en
	}
	return l.he
}

// FieldLabel is the human name of a field.
func FieldLabel(f profile.Field, lang store.Language) string {
	return pick(fieldLabels[f], lang)
}

// DisplayValue renders a stored field value for the user.
func DisplayValue(f profile.Field, value string, lang store.Language) string {
	if f == profile.FieldDateOfBirth {
		return profile.DisplayDate(value)
	}
	if l, ok := valueLabels[value]; ok && (f == profile.FieldGender || f == profile.FieldHMO || f == profile.FieldInsuranceTier) {
		return pick(l, lang)
	}
	return value
}

// Welcome opens every session. It is bilingual since the language is not known yet.
func Welcome() string {
	return "שלום! אני העוזר הדיגיטלי לשירותי קופות החולים. " +
		"כדי לתת מידע מותאם אישית אבקש כמה פרטים: שם פרטי ושם משפחה, מספר תעודת זהות, מגדר, תאריך לידה, קופת חולים ומסלול ביטוח.\n\n" +
		"Hello! I'm the HMO medical services assistant. " +
		"To give you personalized answers I need a few details: first and last name, ID number, gender, date of birth, HMO and insurance tier."
}

// AskMissing asks for exactly the given fields. rejected lists values that were not accepted.
func AskMissing(missing []profile.Field, rejected []*profile.ValidationError, lang store.Language) string {
	var sb strings.Builder
	if note := rejectedNote(rejected, lang); note != "" {
		sb.WriteString(note)
		sb.WriteString("\n")
	}

	hints := make([]string, 0, len(missing))
	for _, f := range missing {
		hints = append(hints, pick(fieldHints[f], lang))
	}
	if lang == store.LanguageEnglish {
		fmt.Fprintf(&sb, "Thanks! I still need: %s.", strings.Join(hints, ", "))
	} else {
		fmt.Fprintf(&sb, "תודה! חסרים לי עדיין: %s.", strings.Join(hints, ", "))
	}
	return sb.String()
}

func rejectedNote(rejected []*profile.ValidationError, lang store.Language) string {
	if len(rejected) == 0 {
		return ""
	}
	names := make([]string, 0, len(rejected))
	for _, r := range rejected {
		names = append(names, FieldLabel(r.Field, lang))
	}
	if lang == store.LanguageEnglish {
		return fmt.Sprintf("Some details were not valid and were not saved: %s.", strings.Join(names, ", "))
	}
	return fmt.Sprintf("חלק מהפרטים אינם תקינים ולא נשמרו: %s.", strings.Join(names, ", "))
}

func summaryLines(p profile.UserProfile, lang store.Language) string {
	var sb strings.Builder
	for _, f := range profile.Fields {
		fmt.Fprintf(&sb, "- %s: %s\n", FieldLabel(f, lang), DisplayValue(f, p.Get(f), lang))
	}
	return sb.String()
}

// Summary lists every field and asks for confirmation.
func Summary(p profile.UserProfile, rejected []*profile.ValidationError, lang store.Language) string {
	var sb strings.Builder
	if note := rejectedNote(rejected, lang); note != "" {
		sb.WriteString(note)
		sb.WriteString("\n\n")
	}
	if lang == store.LanguageEnglish {
		sb.WriteString("Please confirm your details:\n")
		sb.WriteString(summaryLines(p, lang))
		sb.WriteString("\nIs everything correct? Reply \"yes\" to confirm or tell me what to change.")
	} else {
		sb.WriteString("אנא אשר/י את הפרטים:\n")
		sb.WriteString(summaryLines(p, lang))
		sb.WriteString("\nהאם הכל נכון? השב/י \"כן\" לאישור או כתוב/י מה לתקן.")
	}
	return sb.String()
}

// SummaryWithAnswers is re-sent after repeated unclear replies.
func SummaryWithAnswers(p profile.UserProfile, lang store.Language) string {
	if lang == store.LanguageEnglish {
		return "I couldn't tell whether you confirmed. These are the details I have:\n" +
			summaryLines(p, lang) +
			"\nReply \"yes\" (or \"correct\") to confirm, or write the corrected detail, e.g. \"my HMO is Clalit\"."
	}
	return "לא הצלחתי להבין אם אישרת. אלה הפרטים שבידי:\n" +
		summaryLines(p, lang) +
		"\nהשב/י \"כן\" (או \"נכון\") לאישור, או כתוב/י את הפרט המתוקן, למשל \"הקופה שלי היא כללית\"."
}

// AskWhichWrong follows a bare rejection of the summary.
func AskWhichWrong(lang store.Language) string {
	if lang == store.LanguageEnglish {
		return "Which detail is wrong? Please write the correct value."
	}
	return "איזה פרט אינו נכון? אנא כתוב/י את הערך הנכון."
}

// AskConfirmOrCorrect follows an unclear reply to the summary.
func AskConfirmOrCorrect(lang store.Language) string {
	if lang == store.LanguageEnglish {
		return "Please reply \"yes\" to confirm the details, or tell me which detail to correct."
	}
	return "אנא השב/י \"כן\" לאישור הפרטים, או כתוב/י איזה פרט לתקן."
}

// QAReady is sent once the profile is confirmed.
func QAReady(p profile.UserProfile, lang store.Language) string {
	hmo := DisplayValue(profile.FieldHMO, string(p.HMO), lang)
	tier := DisplayValue(profile.FieldInsuranceTier, string(p.InsuranceTier), lang)
	if lang == store.LanguageEnglish {
		return fmt.Sprintf("Thank you, %s! Your details are confirmed. Ask me anything about the medical services of %s (%s tier).", p.FirstName, hmo, tier)
	}
	return fmt.Sprintf("תודה, %s! הפרטים אושרו. אפשר לשאול אותי כל שאלה על שירותי %s במסלול %s.", p.FirstName, hmo, tier)
}

// NoMatch is the reply when no passage is relevant enough.
func NoMatch(lang store.Language) string {
	if lang == store.LanguageEnglish {
		return "I couldn't find matching information about that in the knowledge base for your HMO and tier. Try rephrasing, or contact your HMO directly."
	}
	return "לא מצאתי מידע מתאים לשאלה זו במאגר עבור הקופה והמסלול שלך. נסה/י לנסח מחדש או לפנות ישירות לקופה."
}

// Apology is returned when a capability failed; the turn can simply be retried.
func Apology(lang store.Language) string {
	if lang == store.LanguageEnglish {
		return "Sorry, something went wrong while processing your message. Please try again."
	}
	return "מצטערים, אירעה תקלה בעיבוד ההודעה. אנא נסה/י שוב."
}
