package entities

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTicket_ChannelName(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
	}{
		{
			name:     "Simple",
			username: "dana",
			want:     `^ticket-dana-\d{4}$`,
		},
		{
			name:     "SpacesAndCase",
			username: "Ana Maria Pop",
			want:     `^ticket-ana-maria-pop-\d{4}$`,
		},
		{
			name:     "NonChannelRunes",
			username: "dïana!?",
			want:     `^ticket-dana-\d{4}$`,
		},
		{
			name:     "NothingUsable",
			username: "!!!",
			want:     `^ticket-member-\d{4}$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &Ticket{Username: tt.username}
			require.Regexp(t, regexp.MustCompile(tt.want), ticket.ChannelName())
		})
	}
}

func TestTicket_Topic(t *testing.T) {
	ticket := &Ticket{Username: "dana"}
	require.Equal(t, "Ticket opened by dana", ticket.Topic())
}
