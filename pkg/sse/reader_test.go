package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for {
		data, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(data))
	}
}

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single_frames",
			input: "data: {\"a\":1}\n\ndata: {\"type\":\"complete\"}\n\n",
			want:  []string{`{"a":1}`, `{"type":"complete"}`},
		},
		{
			name:  "crlf",
			input: "data: one\r\n\r\ndata: two\r\n\r\n",
			want:  []string{"one", "two"},
		},
		{
			name:  "multi_line_data",
			input: "data: first\ndata: second\n\n",
			want:  []string{"first\nsecond"},
		},
		{
			name:  "comments_and_fields_ignored",
			input: ": keepalive\nevent: update\nid: 7\nretry: 100\ndata: x\n\n",
			want:  []string{"x"},
		},
		{
			name:  "event_without_data_skipped",
			input: "event: ping\n\ndata: y\n\n",
			want:  []string{"y"},
		},
		{
			name:  "unterminated_trailing_event",
			input: "data: a\n\ndata: b",
			want:  []string{"a", "b"},
		},
		{
			name:  "no_space_after_colon",
			input: "data:tight\n\n",
			want:  []string{"tight"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readAll(t, NewReader(strings.NewReader(tt.input)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReader_LargeFrame(t *testing.T) {
	payload := strings.Repeat("x", 200*1024)
	got := readAll(t, NewReader(strings.NewReader("data: "+payload+"\n\n")))
	require.Len(t, got, 1)
	assert.Len(t, got[0], len(payload))
}

func TestReader_OversizedFrameIsSkipped(t *testing.T) {
	input := "data: " + strings.Repeat("x", MaxFrameSize+1) + "\n\n" +
		"data: {\"a\":1}\n\n"
	r := NewReader(strings.NewReader(input))

	_, err := r.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_OversizedAcrossDataLines(t *testing.T) {
	half := strings.Repeat("y", MaxFrameSize/2+1)
	input := "data: " + half + "\ndata: " + half + "\n\n" +
		": keepalive\n" + strings.Repeat("z", MaxFrameSize+10) + "\n\n" +
		"data: ok\r\n\r\n"
	r := NewReader(strings.NewReader(input))

	_, err := r.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)

	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestReader_OversizedTrailingFrame(t *testing.T) {
	r := NewReader(strings.NewReader("data: a\n\ndata: " + strings.Repeat("x", MaxFrameSize+1)))
	data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	_, err = r.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
