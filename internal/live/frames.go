package live

import (
	"encoding/json"
	"fmt"

	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/shared"
)

// FrameType tags an inbound channel frame.
type FrameType string

const (
	FrameInitial   FrameType = "initial"
	FrameLike      FrameType = "like"
	FrameComment   FrameType = "comment"
	FrameLikeInfo  FrameType = "like_info"
	FrameViewInfo  FrameType = "view_info"
	FrameLiveEnded FrameType = "live_ended"
	// FrameReset is the empty-object frame the server is known to emit;
	// it resets reaction state to defaults.
	FrameReset FrameType = "reset"
)

// LikeData carries the viewer's own reaction toggle.
type LikeData struct {
	LikeStatus bool            `json:"like_status"`
	LikeType   models.Reaction `json:"like_type"`
}

// LikeInfo carries the aggregate reaction counts for a session.
type LikeInfo struct {
	Total  int
	Counts map[models.Reaction]int
}

// ViewInfo carries the current viewer count.
type ViewInfo struct {
	ViewCount int `json:"view_count"`
}

// InitialData is the full state snapshot sent once after connect.
type InitialData struct {
	Comments  []models.Comment `json:"comments"`
	ViewCount int              `json:"view_count"`
	Like      LikeData         `json:"like"`
	likeInfo  LikeInfo
}

// Frame is the tagged union over all known inbound frame shapes. Exactly one
// payload field is set, matching Type.
type Frame struct {
	Type     FrameType
	Initial  *InitialData
	Like     *LikeData
	Comment  *models.Comment
	LikeInfo *LikeInfo
	ViewInfo *ViewInfo
}

// rawFrame is the envelope most frames arrive in. Comment frames are the
// exception: the server sends the comment object itself at the top level,
// so they are recognized structurally.
type rawFrame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeFrame parses an inbound channel payload into a Frame. Anything that
// is not valid JSON or does not match a known shape is rejected with
// [shared.ErrMalformedFrame]; callers log and drop rather than closing.
func DecodeFrame(payload []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", shared.ErrMalformedFrame, err)
	}

	if raw.Type == "" {
		return decodeUntagged(payload)
	}

	switch raw.Type {
	case FrameInitial:
		var initial InitialData
		if err := json.Unmarshal(raw.Data, &initial); err != nil {
			return Frame{}, fmt.Errorf("%w: bad initial data: %v", shared.ErrMalformedFrame, err)
		}
		info, err := decodeLikeInfo(raw.Data)
		if err == nil {
			initial.likeInfo = info
		}
		return Frame{Type: FrameInitial, Initial: &initial}, nil

	case FrameLike:
		var like LikeData
		if err := json.Unmarshal(raw.Data, &like); err != nil {
			return Frame{}, fmt.Errorf("%w: bad like data: %v", shared.ErrMalformedFrame, err)
		}
		if like.LikeStatus && !models.KnownReaction(like.LikeType) {
			return Frame{}, fmt.Errorf("%w: unknown reaction %q", shared.ErrMalformedFrame, like.LikeType)
		}
		return Frame{Type: FrameLike, Like: &like}, nil

	case FrameComment:
		var comment models.Comment
		if err := json.Unmarshal(raw.Data, &comment); err != nil || !comment.Valid() {
			return Frame{}, fmt.Errorf("%w: bad comment data", shared.ErrMalformedFrame)
		}
		return Frame{Type: FrameComment, Comment: &comment}, nil

	case FrameLikeInfo:
		info, err := decodeLikeInfo(raw.Data)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Type: FrameLikeInfo, LikeInfo: &info}, nil

	case FrameViewInfo:
		var view ViewInfo
		if err := json.Unmarshal(raw.Data, &view); err != nil {
			return Frame{}, fmt.Errorf("%w: bad view data: %v", shared.ErrMalformedFrame, err)
		}
		return Frame{Type: FrameViewInfo, ViewInfo: &view}, nil

	case FrameLiveEnded:
		return Frame{Type: FrameLiveEnded}, nil
	}

	return Frame{}, fmt.Errorf("%w: unknown type %q", shared.ErrMalformedFrame, raw.Type)
}

// decodeUntagged handles the two frame shapes that arrive without a type tag:
// the empty object (defensive reset) and comment objects.
func decodeUntagged(payload []byte) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", shared.ErrMalformedFrame, err)
	}

	if len(fields) == 0 {
		return Frame{Type: FrameReset}, nil
	}

	var comment models.Comment
	if err := json.Unmarshal(payload, &comment); err == nil && comment.Valid() {
		return Frame{Type: FrameComment, Comment: &comment}, nil
	}

	return Frame{}, fmt.Errorf("%w: untagged frame is not a comment", shared.ErrMalformedFrame)
}

// decodeLikeInfo reads an aggregate count mapping of the form
// {"total": 5, "heart": 3, "like": 2}. Non-numeric fields are skipped so the
// same scan works on the initial snapshot, which interleaves counts with
// comments and viewer data.
func decodeLikeInfo(data []byte) (LikeInfo, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return LikeInfo{}, fmt.Errorf("%w: bad like_info data: %v", shared.ErrMalformedFrame, err)
	}

	info := LikeInfo{Counts: make(map[models.Reaction]int)}
	for key, raw := range fields {
		var count int
		if err := json.Unmarshal(raw, &count); err != nil {
			continue
		}
		if key == "total" {
			info.Total = count
			continue
		}
		if kind := models.Reaction(key); models.KnownReaction(kind) {
			info.Counts[kind] = count
		}
	}
	return info, nil
}

// outbound frame shapes

type outboundLike struct {
	Type string   `json:"type"`
	Data LikeData `json:"data"`
}

type outboundComment struct {
	Type string `json:"type"`
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
}

func newOutboundLike(status bool, kind models.Reaction) outboundLike {
	return outboundLike{Type: "like", Data: LikeData{LikeStatus: status, LikeType: kind}}
}

func newOutboundComment(content string) outboundComment {
	var frame outboundComment
	frame.Type = "comment"
	frame.Data.Content = content
	return frame
}
