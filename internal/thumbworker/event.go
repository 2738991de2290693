package thumbworker

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ObjectEvent is one object-creation notification from the storage service.
type ObjectEvent struct {
	Key         string
	Size        int64
	ContentType string
}

// s3Notification mirrors the MinIO bucket-notification payload published
// to the event bus. Only the fields the worker reads are declared.
type s3Notification struct {
	EventName string `json:"EventName"`
	Records   []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Object struct {
				Key         string `json:"key"`
				Size        int64  `json:"size"`
				ContentType string `json:"contentType"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseEvents decodes a bucket notification into object events. Object
// keys arrive URL-encoded and are decoded here; only creation events are
// returned.
func ParseEvents(data []byte) ([]ObjectEvent, error) {
	var n s3Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding notification: %w", err)
	}

	var events []ObjectEvent
	for _, rec := range n.Records {
		name := rec.EventName
		if name == "" {
			name = n.EventName
		}
		if !strings.Contains(name, "ObjectCreated") {
			continue
		}
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decoding object key %q: %w", rec.S3.Object.Key, err)
		}
		events = append(events, ObjectEvent{
			Key:         key,
			Size:        rec.S3.Object.Size,
			ContentType: rec.S3.Object.ContentType,
		})
	}
	return events, nil
}
