// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import "text/template"

// expandPromptTmpl instructs the model to turn loose topics and questions
// into four disjoint search term lists.
var expandPromptTmpl = template.Must(template.New("expand").Parse(`You are an academic search strategist. Turn the research topics and questions below into structured search terms.

Respond with a JSON object with exactly these keys, each a list of strings:
- "exact_phrases": multi-word phrases that should match verbatim (2-5 entries)
- "title_terms": words likely to appear in relevant paper titles
- "abstract_terms": words likely to appear in relevant abstracts
- "general_terms": broader fallback terms

The four lists must not repeat entries across lists. Do not include any text outside the JSON object.

Topics:
{{range .Topics}}- {{.}}
{{end}}
Questions:
{{range .Questions}}- {{.}}
{{end}}`))

// rerankPromptTmpl asks for a holistic relevance score per candidate. The
// model sees title and abstract; embedding similarity alone is a weak proxy
// for whether a paper actually answers the questions.
var rerankPromptTmpl = template.Must(template.New("rerank").Parse(`You are ranking academic papers by how well they answer a researcher's questions.

Questions:
{{range .Questions}}- {{.}}
{{end}}
{{if .Keywords}}Keywords: {{range .Keywords}}{{.}} {{end}}
{{end}}
Papers:
{{range .Candidates}}---
identifier: {{.Identifier}}
title: {{.Title}}
abstract: {{.Abstract}}
{{end}}
Respond with a JSON object {"scores": [{"identifier": "...", "score": 0.0}]} where score is between 0.0 (irrelevant) and 1.0 (directly answers a question). Score every paper. Do not include any text outside the JSON object.`))

// localizePromptTmpl asks which pages of a document are worth extracting
// from. One call covers the whole document.
var localizePromptTmpl = template.Must(template.New("localize").Parse(`You are scanning an academic document to find pages relevant to a researcher's questions.

Questions:
{{range .Questions}}- {{.}}
{{end}}
Document pages:
{{range .Pages}}<!-- page {{.Number}} -->
{{.Text}}
{{end}}
Respond with a JSON object {"pages": [1, 4, 7]} listing the page numbers that contain material answering any question. Return an empty list if no page is relevant. Do not include any text outside the JSON object.`))

// extractPromptTmpl pulls verbatim quotes with justification from a small
// group of pages. Quotes must be traceable to a specific page.
var extractPromptTmpl = template.Must(template.New("extract").Parse(`You are extracting evidence from an academic document to answer a researcher's questions.

Questions:
{{range .Questions}}- {{.}}
{{end}}
Pages:
{{range .Pages}}<!-- page {{.Number}} -->
{{.Text}}
{{end}}
{{if .Bibliography}}Bibliography:
{{range .Bibliography}}[{{.Key}}] {{.Raw}}
{{end}}{{end}}
For each piece of evidence, produce:
- "quote": the exact text from the page, verbatim, including any inline citation markers like [3]
- "justification": one sentence on why the quote answers the question
- "question": the question it answers, copied exactly from the list above
- "page": the page number the quote appears on
- "score": a float between 0.0 and 1.0 for how directly the quote answers the question

Respond with a JSON object {"notes": [...]} containing zero or more such objects. Only quote text that actually appears on the pages. Do not include any text outside the JSON object.`))
