package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 45, 123456000, time.UTC)
	tests := []struct {
		name  string
		input string
	}{
		{"rfc3339", "2024-05-01T12:30:45.123456Z"},
		{"naive iso", "2024-05-01T12:30:45.123456"},
		{"python str", "2024-05-01 12:30:45.123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) error = %v", tt.input, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got.Time, want)
			}
		})
	}
}

func TestParseTimestampWithoutFraction(t *testing.T) {
	got, err := ParseTimestamp("2024-05-01 12:30:45")
	if err != nil {
		t.Fatal(err)
	}
	if got.Second() != 45 || got.Nanosecond() != 0 {
		t.Errorf("got %v, want 12:30:45 with no fraction", got.Time)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp(yesterday) should fail")
	}
}

func TestMessageUnmarshalFlatAttachment(t *testing.T) {
	data := `{"id":7,"conversation_id":3,"sender_id":2,"content":"File sent","is_read":true,
		"timestamp":"2024-05-01T10:00:00","file_url":"/uploads/a.png","file_name":"a.png","file_type":"image/png"}`
	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != 7 || m.ConversationID != 3 || m.SenderID != 2 || !m.IsRead {
		t.Errorf("unexpected message fields: %+v", m)
	}
	if m.Attachment == nil {
		t.Fatal("Attachment = nil, want file metadata")
	}
	if m.Attachment.URL != "/uploads/a.png" || m.Attachment.Name != "a.png" || m.Attachment.MIMEType != "image/png" {
		t.Errorf("Attachment = %+v", *m.Attachment)
	}
}

func TestMessageWithoutFileHasNoAttachment(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"id":1,"content":"hi","file_url":null}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.Attachment != nil {
		t.Errorf("Attachment = %+v, want nil", *m.Attachment)
	}
}

func TestDisplayName(t *testing.T) {
	empty := ""
	named := "Team"
	tests := []struct {
		name string
		conv Conversation
		want string
	}{
		{"nil name", Conversation{ID: 1}, UnnamedConversation},
		{"empty name", Conversation{ID: 1, Name: &empty}, UnnamedConversation},
		{"named", Conversation{ID: 1, Name: &named}, "Team"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
