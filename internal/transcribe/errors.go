package transcribe

import "errors"

// ErrAPIKeyMissing indicates OPENAI_API_KEY is not configured.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY not set")

// ErrEngine wraps every failure reported by the speech-to-text engine.
// The apierr sentinel (rate limit, auth, ...) is joined to it when known.
var ErrEngine = errors.New("transcription engine failed")
