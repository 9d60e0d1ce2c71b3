package live

import (
	"github.com/wavecast/wavecast/internal/models"
)

// State is the merged social view of one live session. A Channel owns the
// canonical copy; consumers receive snapshots and must not share them across
// channel instances.
type State struct {
	// ReactionCounts maps each reaction kind to its aggregate count.
	ReactionCounts map[models.Reaction]int
	// LikeCount is the aggregate total across all reaction kinds.
	LikeCount int
	// CurrentUserReaction is the bucket the viewing user currently occupies,
	// ReactionNone if they hold no reaction. It is a pointer into
	// ReactionCounts, never counted separately.
	CurrentUserReaction models.Reaction
	// Comments is append-only and deduplicated by id.
	Comments []models.Comment
	// ViewerCount is the last observed concurrent viewer count.
	ViewerCount int
	// Ended is terminal: once set, no further mutation is accepted.
	Ended bool
}

func newState() State {
	return State{ReactionCounts: make(map[models.Reaction]int)}
}

// clone returns a snapshot safe to hand outside the channel.
func (s State) clone() State {
	out := s
	out.ReactionCounts = make(map[models.Reaction]int, len(s.ReactionCounts))
	for k, v := range s.ReactionCounts {
		out.ReactionCounts[k] = v
	}
	out.Comments = append([]models.Comment(nil), s.Comments...)
	return out
}

// apply folds one decoded frame into the state. Returns false if the frame
// was ignored (frozen state or duplicate comment). seen is the comment
// dedup set owned by the channel.
func (s *State) apply(frame Frame, seen map[int64]struct{}) bool {
	if s.Ended {
		return false
	}

	switch frame.Type {
	case FrameInitial:
		*s = newState()
		for k, v := range frame.Initial.likeInfo.Counts {
			s.ReactionCounts[k] = v
		}
		s.LikeCount = frame.Initial.likeInfo.Total
		s.ViewerCount = frame.Initial.ViewCount
		if frame.Initial.Like.LikeStatus {
			s.CurrentUserReaction = frame.Initial.Like.LikeType
		}
		for k := range seen {
			delete(seen, k)
		}
		for _, comment := range frame.Initial.Comments {
			if _, dup := seen[comment.ID]; dup {
				continue
			}
			seen[comment.ID] = struct{}{}
			s.Comments = append(s.Comments, comment)
		}
		return true

	case FrameLike:
		// Only the viewer's own bucket pointer moves here; aggregate counts
		// arrive separately via like_info.
		if frame.Like.LikeStatus {
			s.CurrentUserReaction = frame.Like.LikeType
		} else {
			s.CurrentUserReaction = models.ReactionNone
		}
		return true

	case FrameComment:
		if _, dup := seen[frame.Comment.ID]; dup {
			return false
		}
		seen[frame.Comment.ID] = struct{}{}
		s.Comments = append(s.Comments, *frame.Comment)
		return true

	case FrameLikeInfo:
		counts := make(map[models.Reaction]int, len(frame.LikeInfo.Counts))
		for k, v := range frame.LikeInfo.Counts {
			counts[k] = v
		}
		s.ReactionCounts = counts
		s.LikeCount = frame.LikeInfo.Total
		return true

	case FrameViewInfo:
		s.ViewerCount = frame.ViewInfo.ViewCount
		return true

	case FrameLiveEnded:
		s.Ended = true
		return true

	case FrameReset:
		s.ReactionCounts = make(map[models.Reaction]int)
		s.LikeCount = 0
		s.CurrentUserReaction = models.ReactionNone
		return true
	}

	return false
}
