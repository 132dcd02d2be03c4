package chat

import "time"

// Speaker labels who produced a transcript entry.
type Speaker string

const (
	SpeakerUser Speaker = "You"
	SpeakerBot  Speaker = "Bot"
)

// ImagePlaceholder stands in for an uploaded image in the transcript.
const ImagePlaceholder = "Uploaded an image"

// Entry is one line of the session transcript.
type Entry struct {
	Speaker   Speaker   `json:"speaker"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
