package conversation

type ReplyRequest struct {
	// UserText is the plain text of the mention
	UserText string
	// Transcript of the thread, empty when unknown
	Transcript string
	// PreviousResponseID links the call to the thread's earlier model turn
	PreviousResponseID string
}

type ReplyResult struct {
	Text       string
	ResponseID string
	Status     string
}

type slot struct {
	name      string
	timeLabel string
}
