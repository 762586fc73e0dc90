package api

// startSessionRequest is the body of POST /upload-session.
type startSessionRequest struct {
	PatientID string `json:"patientId" validate:"required"`
}

// uploadTargetRequest is the body of POST /get-presigned-url.
type uploadTargetRequest struct {
	SessionID   string `json:"sessionId" validate:"required"`
	ChunkNumber *int   `json:"chunkNumber" validate:"required,min=0"`
	MimeType    string `json:"mimeType" validate:"required,mimetype"`
}

// notifyChunkRequest is the body of POST /notify-chunk-uploaded.
type notifyChunkRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Locator   string `json:"locator" validate:"required"`
	IsLast    *bool  `json:"isLast" validate:"required"`
}
