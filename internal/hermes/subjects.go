package hermes

const (
	StreamName   = "SITESELECT_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

// StreamSubjects are captured by the JetStream stream.
var StreamSubjects = []string{"siteselect.location.>", "siteselect.batch.>"}

// SubjectAll matches every event siteselect publishes.
const SubjectAll = "siteselect.>"

func SubjectLocationScored(typeID string) string { return "siteselect.location." + typeID + ".scored" }
func SubjectLocationFailed(typeID string) string { return "siteselect.location." + typeID + ".failed" }
func SubjectBatchRanked(typeID string) string    { return "siteselect.batch." + typeID + ".ranked" }
