// Package prompt builds the task prompts fed to the language model. Each
// builder ends its prompt with an output cue so small instruction-tuned
// models answer in the expected shape.
package prompt

import "strings"

// PersonaInput carries the profile fields and writing samples a persona is
// summarized from.
type PersonaInput struct {
	Name       string
	Position   string
	Department string
	Language   string
	Samples    []string
}

// Persona builds the one-sentence persona summary prompt. The output format
// line embeds the subject's own fields so the model mirrors them back.
func Persona(in PersonaInput) string {
	var samples strings.Builder
	for _, s := range in.Samples {
		samples.WriteString(s)
		samples.WriteString(" ")
	}

	var b strings.Builder
	b.WriteString("Generate a one-sentence professional persona summary.\n\n")
	b.WriteString("Input:\n")
	b.WriteString("Name: " + in.Name + "\n")
	b.WriteString("Position: " + in.Position + "\n")
	b.WriteString("Department: " + in.Department + "\n")
	b.WriteString("Language: " + in.Language + "\n")
	b.WriteString("Writing samples: " + samples.String() + "\n\n")
	b.WriteString("Output format:it should include these fild specifically\n")
	b.WriteString(in.Name + " (" + in.Position + ", " + in.Department +
		"). Preferred language: " + in.Language + ". [tone] tone. [style] communication style.\n\n")
	b.WriteString("Persona:")
	return b.String()
}

// CVDetection builds the CV metadata extraction prompt. It takes no input:
// the CV content arrives as images alongside the prompt.
func CVDetection() string {
	return "You are an AI assistant that extracts information from CV/resume images.\n\n" +
		"Please analyze the CV image and extract the following information:\n" +
		"1. Name (full name of the candidate)\n" +
		"2. Position (job title or desired position)\n" +
		"3. Skills (list up to 10 key technical skills)\n" +
		"4. Experience (total years of professional experience)\n" +
		"5. Education (highest degree)\n\n" +
		"Return ONLY valid JSON in this exact format with no additional text:\n" +
		"{\n" +
		"  \"name\": \"Full Name\",\n" +
		"  \"position\": \"Job Title\",\n" +
		"  \"skills\": [\"skill1\", \"skill2\", \"skill3\"],\n" +
		"  \"experience\": \"X years\",\n" +
		"  \"education\": \"Degree Name\"\n" +
		"}\n\n" +
		"Output:"
}

// DraftReply builds the email drafting prompt. The instruction block and the
// matching numbered requirement are only emitted when an instruction is
// given; the attachment note only when attachments are present.
func DraftReply(persona, subject, body, instruction string, hasAttachments bool) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that drafts email replies based on user persona and instructions.\n\n")
	b.WriteString("Persona: " + persona + "\n\n")
	b.WriteString("Original Email Subject: " + subject + "\n")
	b.WriteString("Original Email Body: " + body + "\n\n")

	if hasAttachments {
		b.WriteString("Note: The email contains attachments (images shown above represent PDF content).\n\n")
	}
	if instruction != "" {
		b.WriteString("Instruction: " + instruction + "\n\n")
	}

	b.WriteString("Draft a reply email that:\n")
	b.WriteString("1. Matches the persona's tone and language preference\n")
	if instruction != "" {
		b.WriteString("2. Follows the given instruction\n")
	} else {
		b.WriteString("2. Provides an appropriate response to the original email\n")
	}
	b.WriteString("3. References attachment content if relevant\n")
	b.WriteString("4. Is professional and appropriate\n\n")
	b.WriteString("Return ONLY valid JSON in this exact format with no additional text:\n")
	b.WriteString("{\n")
	b.WriteString("  \"subject\": \"Re: [original subject]\",\n")
	b.WriteString("  \"draft_reply\": \"Your drafted email reply here\"\n")
	b.WriteString("}\n\n")
	b.WriteString("Output:")
	return b.String()
}

// Classification builds the email triage prompt over the closed category set.
func Classification(subject, body string, hasAttachments bool) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that classifies emails based on urgency and priority.\n\n")
	b.WriteString("Email Subject: " + subject + "\n")
	b.WriteString("Email Body: " + body + "\n\n")

	if hasAttachments {
		b.WriteString("Note: The email contains attachments (images shown above represent PDF content).\n\n")
	}

	b.WriteString("Classify this email into ONE of the following categories:\n")
	b.WriteString("1. \"Urgent & Action Required\" - Requires immediate attention and action\n")
	b.WriteString("2. \"Normal Follow-up\" - Regular business communication requiring response\n")
	b.WriteString("3. \"FYI / Low Priority\" - Informational only, no immediate action needed\n")
	b.WriteString("4. \"Spam\" - Unsolicited, irrelevant, or suspicious content\n\n")
	b.WriteString("Consider:\n")
	b.WriteString("- Time-sensitive keywords (deadline, urgent, ASAP, today, tomorrow)\n")
	b.WriteString("- Action verbs (submit, complete, respond, approve)\n")
	b.WriteString("- Sender context and attachment relevance\n\n")
	b.WriteString("Return ONLY valid JSON in this exact format with no additional text:\n")
	b.WriteString("{\n")
	b.WriteString("  \"category\": \"One of the four categories above\",\n")
	b.WriteString("  \"confidence\": 0.85\n")
	b.WriteString("}\n\n")
	b.WriteString("Output:")
	return b.String()
}
