package message

// ebMS3 error severities
const (
	SeverityFailure = "failure"
	SeverityWarning = "warning"
)

// ErrorCode is one entry of the ebMS3 error catalogue
type ErrorCode struct {
	Code             string
	Severity         string
	ShortDescription string
	Category         string
}

// Predefined ebMS3 and AS4 error codes
var (
	ErrorValueNotRecognized = ErrorCode{
		Code:             "EBMS:0001",
		Severity:         SeverityFailure,
		ShortDescription: "ValueNotRecognized",
		Category:         "Content",
	}

	ErrorValueInconsistent = ErrorCode{
		Code:             "EBMS:0003",
		Severity:         SeverityFailure,
		ShortDescription: "ValueInconsistent",
		Category:         "Content",
	}

	ErrorOther = ErrorCode{
		Code:             "EBMS:0004",
		Severity:         SeverityFailure,
		ShortDescription: "Other",
		Category:         "Content",
	}

	ErrorEmptyMessagePartition = ErrorCode{
		Code:             "EBMS:0006",
		Severity:         SeverityWarning,
		ShortDescription: "EmptyMessagePartitionChannel",
		Category:         "Communication",
	}

	ErrorInvalidHeader = ErrorCode{
		Code:             "EBMS:0009",
		Severity:         SeverityFailure,
		ShortDescription: "InvalidHeader",
		Category:         "Unpackaging",
	}

	ErrorProcessingModeMismatch = ErrorCode{
		Code:             "EBMS:0010",
		Severity:         SeverityFailure,
		ShortDescription: "ProcessingModeMismatch",
		Category:         "Processing",
	}

	ErrorDeliveryFailure = ErrorCode{
		Code:             "EBMS:0202",
		Severity:         SeverityFailure,
		ShortDescription: "DeliveryFailure",
		Category:         "Communication",
	}

	ErrorMissingReceipt = ErrorCode{
		Code:             "EBMS:0301",
		Severity:         SeverityFailure,
		ShortDescription: "MissingReceipt",
		Category:         "Communication",
	}

	ErrorDecompressionFailure = ErrorCode{
		Code:             "EBMS:0303",
		Severity:         SeverityFailure,
		ShortDescription: "DecompressionFailure",
		Category:         "Communication",
	}
)

// New creates an error of this code referencing the given message
func (c ErrorCode) New(refToMessageInError, description string) Error {
	return Error{
		ErrorCode:           c.Code,
		Severity:            c.Severity,
		ShortDescription:    c.ShortDescription,
		Category:            c.Category,
		Origin:              "ebMS",
		RefToMessageInError: refToMessageInError,
		Description:         description,
	}
}
