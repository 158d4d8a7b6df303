package docqa

const retryTip = "Tip: You can try sending your question again."

// messageFor returns the display copy for a failure kind. upstream is only used by
// KindUnknown, which forwards the backend's message verbatim.
func messageFor(kind ErrorKind, upstream string) string {
	switch kind {
	case KindQuotaExceeded:
		return "API quota exceeded. Please try again later or contact support if this persists."
	case KindNotFound:
		return "Document not found. Please check your document ID or re-upload the document."
	case KindGatewayError:
		return "AI service temporarily unavailable. We tried multiple times but couldn't connect."
	case KindServerError:
		return "Server error occurred. We tried multiple times but couldn't complete your request."
	case KindNetworkError:
		return "Network connection error. Please check your internet connection and try again."
	case KindAuthFailure:
		return "Authentication failed. Please log in again."
	case KindCircuitOpen:
		return "The service is temporarily unavailable. Please wait a moment before trying again."
	default:
		if upstream != "" {
			return upstream
		}
		return "An unexpected error occurred. Please try again."
	}
}

// CanRetry reports whether the caller should offer a manual retry.
// Quota, authentication and not-found failures will not improve on retry.
func CanRetry(f *Failure) bool {
	if f == nil {
		return false
	}
	switch f.Kind {
	case KindQuotaExceeded, KindAuthFailure, KindNotFound:
		return false
	default:
		return true
	}
}

// Display returns the failure message with a retry tip appended when a manual
// retry is worthwhile.
func (f *Failure) Display() string {
	if CanRetry(f) {
		return f.Message + "\n\n" + retryTip
	}
	return f.Message
}
