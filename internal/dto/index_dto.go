package dto

type IndexMessagesRequest struct {
	Messages []MessageRequest `json:"messages" validate:"required,min=1,max=500,dive"`
}

type IndexMessagesResponse struct {
	Queued int `json:"queued"`
}

// IndexQueuePayload is the body of an internal index queue message.
type IndexQueuePayload struct {
	Messages []MessageRequest `json:"messages"`
}
