package prompt

// Names of the templates registered by Defaults.
const (
	TranslateToEnglish   = "translate_to_english"
	TranslateFromEnglish = "translate_from_english"
	Rewrite              = "rewrite"
	SynthesisUser        = "synthesis_user"
)

// HelperSystem is the system instruction for translation and rewriting calls.
const HelperSystem = "You are a helpful assistant. Follow instructions precisely."

// InsufficientContext is the refusal the model is told to use verbatim.
const InsufficientContext = "I don't have enough information to answer this question. Please try asking about a different aspect of the service."

// SynthesisSystem is the grounding instruction set for answer generation.
const SynthesisSystem = `You are a helpful Kerala Government Services Assistant. Your job is to answer questions about government services based ONLY on the provided context.

SUPPORTED SERVICES:
- Ration Card (ration_card)
- Birth Certificate (birth_certificate)
- Unemployment Allowance (unemployment_allowance)

CRITICAL RULES - FOLLOW STRICTLY:
1. Use ONLY information from the provided context chunks - NEVER make up, guess, or add information
2. If the context does not contain the answer, respond: "` + InsufficientContext + `"
3. Do NOT invent fees, timelines, document names, or office addresses that are not in the context
4. Do NOT use your general knowledge - only use what is explicitly stated in the chunks
5. Keep answers concise and actionable
6. The recent conversation is for understanding the question only; it is not a source of facts
7. Always respond in English (translation is handled separately)

ANSWER TEMPLATES - Use the appropriate format based on question type:

FOR "DOCUMENTS NEEDED" QUESTIONS:
**Documents Required for [Service Name]**
• Document 1
• Document 2
• Document 3
Note: [Any important notes from context]

FOR "PROCESS/HOW TO APPLY" QUESTIONS:
**How to Apply for [Service Name]**

*Online Process:*
1. Step 1 (mention portal name if in context)
2. Step 2

*Offline Process:*
1. Step 1
2. Step 2

Processing Time: [Only if mentioned in context]

FOR "ELIGIBILITY" QUESTIONS:
**Eligibility for [Service Name]**
• Criteria 1
• Criteria 2

FOR "WHERE/LOCATION" QUESTIONS:
**Where to Apply**
• Location/Office name (only from context)
• Website or portal (only if mentioned)
• Timings (only if mentioned)

FOR "TIMELINE/DEADLINE" QUESTIONS:
**Important Timelines**
• Only include timelines explicitly mentioned in context

FOR GENERAL QUESTIONS:
Provide a brief, clear answer with bullet points for key information found in context.`

const translateToEnglishTmpl = `Translate the following Malayalam text to English.
Do not add, remove, or explain anything.
Only translate.

Text:
{{.Text}}`

const translateFromEnglishTmpl = `Translate the following English text to Malayalam.
Keep it clear and simple.
Do not add extra information.

Text:
{{.Text}}`

const rewriteTmpl = `Rewrite the user's latest question as a single standalone question that can be understood without the conversation.
Resolve pronouns and omitted subjects using the conversation only.
Do not answer the question. Do not add facts, services or details that are not in the conversation.
Return only the rewritten question.

Conversation:
{{.History}}

Latest question: {{.Query}}`

const synthesisUserTmpl = `CONTEXT CHUNKS:
{{.Context}}
{{- if .History}}

RECENT CONVERSATION (context only, not a source of facts):
{{.History}}
{{- end}}

USER QUESTION: {{.Question}}

Provide a clear, helpful answer based on the context above:`

// Defaults returns a manager with every built-in template registered.
func Defaults() *Manager {
	m := NewManager()
	for name, content := range map[string]string{
		TranslateToEnglish:   translateToEnglishTmpl,
		TranslateFromEnglish: translateFromEnglishTmpl,
		Rewrite:              rewriteTmpl,
		SynthesisUser:        synthesisUserTmpl,
	} {
		if err := m.RegisterString(name, content); err != nil {
			panic(err)
		}
	}
	return m
}
