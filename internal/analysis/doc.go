// Package analysis sends composed prompts to a generative model and extracts
// the markdown analysis from its response.
//
// Two providers implement Generator:
//
//   - Gemini: Google's generative-ai-go SDK (default model gemini-2.5-pro)
//   - OpenAI: the Responses HTTP API (default model gpt-4o-mini)
//
// Providers report what they received as a Reply, and Client resolves it the
// same way regardless of provider: a direct text field first, then the first
// candidate's text fragments joined in order. A response matching neither
// shape is not an error; Client logs ErrUnexpectedShape and returns a JSON
// rendering of the raw response.
//
// Sections parses the resulting markdown into headed parts for logging and
// command-line output.
package analysis
