// Package prompt builds the instruction text sent to the analysis model.
package prompt

import "strings"

// Sections lists, in order, the headers the model is asked to produce.
var Sections = []string{
	"Product Name",
	"Ingredients",
	"Allergen Warnings",
	"Nutrition Summary",
	"Similar Products",
	"Review Summary",
	"Translations",
	"Pairing Suggestions",
	"Dietary Status",
}

// Allergens are the allergen classes the model must flag.
var Allergens = []string{"milk", "nuts", "gluten", "soy", "wheat", "eggs"}

// Languages are the fixed translation targets.
var Languages = []string{"Spanish", "Chinese", "Hindi"}

// The template has exactly one substitution point: OCR text goes between
// header and footer.
const header = `You are analyzing text extracted from a product label.

Instructions:
- If the actual product name is not clearly present, infer the most likely product name from all contextual clues in the text rather than matching a literal phrase.
- Display the product name (detected or inferred) at the top.
- Extract the information into the sections below, in this order:

1. Product Name (display only, do not translate)
2. Ingredients (list all found or likely ingredients)
3. Allergen Warnings (detect: milk, nuts, gluten, soy, wheat, eggs)
4. Nutrition Summary (summarize any nutrition facts found)
5. Similar Products (3 similar product recommendations with approximate prices; include at least one higher-priced, better-quality alternative)
6. Review Summary (aggregate online reviews as a star rating out of 5)
7. Translations:
   - Spanish: a simple product description using the product name
   - Chinese: a simple product description using the product name
   - Hindi: a simple product description using the product name
   (DO NOT translate the product name itself)
8. Pairing Suggestions (only if relevant for this product)
9. Dietary Status (vegan, halal, or other dietary classification)

Context (OCR text, may contain repetition or noise):
`

const footer = `

Return only the sections above. For translations, use the product name exactly as shown and never translate it. Format all output in Markdown with a clear header for each section.
`

// Compose embeds OCR text into the analysis template.
//
// The text is inserted verbatim: no validation of language, length or
// content is performed, and an empty string yields a valid prompt. Compose is
// pure, so identical input always produces byte-identical output.
func Compose(text string) string {
	var b strings.Builder
	b.Grow(len(header) + len(text) + len(footer))
	b.WriteString(header)
	b.WriteString(text)
	b.WriteString(footer)
	return b.String()
}
