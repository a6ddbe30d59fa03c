package models

// Image is a thumbnail candidate. Either URL or Data is set.
type Image struct {
	URL         string `json:"url,omitempty"`
	Data        []byte `json:"-"`
	MimeType    string `json:"mime_type,omitempty"`
	Source      string `json:"source"`
	Attribution string `json:"attribution,omitempty"`
}
