package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	SourceError     = 3
	IngestError     = 4
	ServeError      = 5
	ExportError     = 6
)
