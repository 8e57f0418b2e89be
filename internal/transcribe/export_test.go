package transcribe

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// AudioTranscriber exports audioTranscriber for mocks.
type AudioTranscriber = audioTranscriber

// Function exports for unit testing internal logic.
var (
	ClassifyError = classifyError
	Assemble      = assemble
)
