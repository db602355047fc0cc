package testsupport

import (
	"testing"

	"github.com/goliatone/go-intake/pkg/intake"
)

func yesNo(prefix string) []intake.Option {
	return []intake.Option{
		{Value: "yes", Label: "Yes", LabelKey: prefix + ".yes"},
		{Value: "no", Label: "No", LabelKey: prefix + ".no"},
	}
}

func relationships() []intake.Option {
	return []intake.Option{
		{Value: "spouse", Label: "Spouse", LabelKey: "options.relationship.spouse"},
		{Value: "parent", Label: "Parent", LabelKey: "options.relationship.parent"},
		{Value: "child", Label: "Child", LabelKey: "options.relationship.child"},
		{Value: "sibling", Label: "Sibling", LabelKey: "options.relationship.sibling"},
	}
}

func petitionerStatuses() []intake.Option {
	return []intake.Option{
		{Value: "citizen", Label: "U.S. citizen", LabelKey: "options.petitionerStatus.citizen"},
		{Value: "permanent-resident", Label: "Permanent resident", LabelKey: "options.petitionerStatus.permanentResident"},
	}
}

func documents() []intake.Option {
	return []intake.Option{
		{Value: "passport", Label: "Passport", LabelKey: "options.documents.passport"},
		{Value: "birth-certificate", Label: "Birth certificate", LabelKey: "options.documents.birthCertificate"},
		{Value: "marriage-certificate", Label: "Marriage certificate", LabelKey: "options.documents.marriageCertificate"},
		{Value: "i94", Label: "I-94 record", LabelKey: "options.documents.i94"},
	}
}

// Catalog returns the reference intake catalog. It mirrors the embedded
// default catalog shipped with pkg/catalog.
func Catalog() intake.Catalog {
	return intake.Catalog{
		Classification: intake.FieldDefinition{
			Key:      "caseType",
			Kind:     intake.KindSingleChoice,
			Label:    "What kind of help do you need?",
			LabelKey: "classification.caseType.label",
			Required: true,
			Options: []intake.Option{
				{Value: "asylum", Label: "Asylum", LabelKey: "caseTypes.asylum"},
				{Value: "family-inside-us", Label: "Family petition (inside the U.S.)", LabelKey: "caseTypes.familyInsideUs"},
				{Value: "family-outside-us", Label: "Family petition (outside the U.S.)", LabelKey: "caseTypes.familyOutsideUs"},
				{Value: "other", Label: "Something else", LabelKey: "caseTypes.other"},
			},
		},
		DefaultBranch: "other",
		Branches: []intake.Branch{
			{
				ID:       "asylum",
				Label:    "Asylum",
				LabelKey: "caseTypes.asylum",
				Fields: []intake.FieldDefinition{
					{Key: "entryMethod", Kind: intake.KindShortText, Label: "How did you enter the U.S.?", LabelKey: "asylum.entryMethod.label", Required: true},
					{Key: "entryDate", Kind: intake.KindDate, Label: "When did you enter the U.S.?", LabelKey: "asylum.entryDate.label", HelpText: "Use YYYY-MM-DD.", HelpTextKey: "help.date", Required: true},
					{Key: "afraidToReturn", Kind: intake.KindSingleChoice, Label: "Are you afraid to return to your country?", LabelKey: "asylum.afraidToReturn.label", Required: true, Options: yesNo("options.yesNo")},
					{Key: "reasonAfraid", Kind: intake.KindLongText, Label: "Why are you afraid to return?", LabelKey: "asylum.reasonAfraid.label", Required: true, VisibleWhen: `afraidToReturn == "yes"`},
					{Key: "inRemovalProceedings", Kind: intake.KindSingleChoice, Label: "Are you in removal proceedings?", LabelKey: "asylum.inRemovalProceedings.label", Required: true, Options: yesNo("options.yesNo")},
					{Key: "courtDate", Kind: intake.KindDate, Label: "Next court date, if known", LabelKey: "asylum.courtDate.label", HelpTextKey: "help.date", HelpText: "Use YYYY-MM-DD.", VisibleWhen: `inRemovalProceedings == "yes"`},
				},
			},
			{
				ID:       "family-inside-us",
				Label:    "Family petition (inside the U.S.)",
				LabelKey: "caseTypes.familyInsideUs",
				Fields: []intake.FieldDefinition{
					{Key: "relationship", Kind: intake.KindSingleChoice, Label: "Who is petitioning for you?", LabelKey: "family.relationship.label", Required: true, Options: relationships()},
					{Key: "marriageDate", Kind: intake.KindDate, Label: "Date of marriage", LabelKey: "family.marriageDate.label", HelpText: "Use YYYY-MM-DD.", HelpTextKey: "help.date", Required: true, VisibleWhen: `relationship == "spouse"`},
					{Key: "petitionerStatus", Kind: intake.KindSingleChoice, Label: "What is the petitioner's status?", LabelKey: "family.petitionerStatus.label", Required: true, Options: petitionerStatuses()},
					{Key: "entryDate", Kind: intake.KindDate, Label: "When did you last enter the U.S.?", LabelKey: "family.entryDate.label", HelpText: "Use YYYY-MM-DD.", HelpTextKey: "help.date", Required: true},
					{Key: "hasPriorPetition", Kind: intake.KindSingleChoice, Label: "Has anyone filed a petition for you before?", LabelKey: "family.hasPriorPetition.label", Required: true, Options: yesNo("options.yesNo")},
					{Key: "priorPetitionDetails", Kind: intake.KindLongText, Label: "Tell us about the earlier petition", LabelKey: "family.priorPetitionDetails.label", Required: true, VisibleWhen: `hasPriorPetition == "yes"`},
					{Key: "documents", Kind: intake.KindMultiChoice, Label: "Which documents do you have?", LabelKey: "family.documents.label", Options: documents()},
				},
			},
			{
				ID:       "family-outside-us",
				Label:    "Family petition (outside the U.S.)",
				LabelKey: "caseTypes.familyOutsideUs",
				Fields: []intake.FieldDefinition{
					{Key: "relationship", Kind: intake.KindSingleChoice, Label: "Who is petitioning for you?", LabelKey: "family.relationship.label", Required: true, Options: relationships()},
					{Key: "petitionerStatus", Kind: intake.KindSingleChoice, Label: "What is the petitioner's status?", LabelKey: "family.petitionerStatus.label", Required: true, Options: petitionerStatuses()},
					{Key: "countryOfResidence", Kind: intake.KindShortText, Label: "Which country do you live in?", LabelKey: "family.countryOfResidence.label", Required: true},
					{Key: "priorDenial", Kind: intake.KindSingleChoice, Label: "Have you ever been denied a visa?", LabelKey: "family.priorDenial.label", Required: true, Options: yesNo("options.yesNo")},
					{Key: "denialDetails", Kind: intake.KindLongText, Label: "Tell us about the denial", LabelKey: "family.denialDetails.label", Required: true, VisibleWhen: `priorDenial == "yes"`},
					{Key: "documents", Kind: intake.KindMultiChoice, Label: "Which documents do you have?", LabelKey: "family.documents.label", Options: documents()},
					{Key: "needsTranslation", Kind: intake.KindSingleChoice, Label: "Is your birth certificate in a language other than English?", LabelKey: "family.needsTranslation.label", VisibleWhen: `documents == "birth-certificate"`, Options: yesNo("options.yesNo")},
				},
			},
			{
				ID:       "other",
				Label:    "Something else",
				LabelKey: "caseTypes.other",
				Fields: []intake.FieldDefinition{
					{Key: "description", Kind: intake.KindLongText, Label: "Describe your situation", LabelKey: "other.description.label", Required: true},
					{Key: "preferredContact", Kind: intake.KindSingleChoice, Label: "How should we contact you?", LabelKey: "other.preferredContact.label", Required: true, Options: []intake.Option{
						{Value: "email", Label: "Email", LabelKey: "options.contact.email"},
						{Value: "phone", Label: "Phone", LabelKey: "options.contact.phone"},
					}},
					{Key: "phone", Kind: intake.KindShortText, Label: "Phone number", LabelKey: "other.phone.label", Required: true, VisibleWhen: `preferredContact == "phone"`},
				},
			},
		},
	}
}

// Branch returns a reference branch by id and fails the test when missing.
func Branch(t *testing.T, id string) intake.Branch {
	t.Helper()

	branch, ok := Catalog().Branch(id)
	if !ok {
		t.Fatalf("testsupport: branch %q not in catalog", id)
	}
	return branch
}

// MustFlow compiles a reference branch.
func MustFlow(t *testing.T, id string) *intake.Flow {
	t.Helper()

	flow, err := intake.NewFlow(Branch(t, id))
	if err != nil {
		t.Fatalf("testsupport: compile branch %q: %v", id, err)
	}
	return flow
}

// AsylumHappyPath returns the minimal answer set that passes validation on
// the asylum branch.
func AsylumHappyPath() intake.Answers {
	return intake.Answers{
		"entryMethod":          intake.Text("flew on a tourist visa"),
		"entryDate":            intake.Date("2019-05-01"),
		"afraidToReturn":       intake.Choice("no"),
		"inRemovalProceedings": intake.Choice("no"),
	}
}
