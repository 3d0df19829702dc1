package graph

import (
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Options tunes relation extraction.
type Options struct {
	// RequireChannels makes a video whose channel has no channel record a
	// construction error instead of creating an implicit channel node.
	RequireChannels bool

	// MaxVideosPerKeyword, when positive, skips video-video edges for
	// keywords tagged on more videos than this. Videos stay connected
	// through the keyword node and the keyword is reported by
	// Graph.CappedKeywords. Zero or negative means unlimited.
	MaxVideosPerKeyword int
}

// BuildSnapshot builds the graph of a snapshot.
func BuildSnapshot(snap *records.Snapshot, opts Options) (*Graph, error) {
	return Build(snap.Records, snap.Window, opts)
}

// Build turns a flat record collection into a graph. Relations, each
// contributing weight 1 per instance:
//
//	channel - video    the channel published the video
//	video   - keyword  the video is tagged with the keyword
//	channel - keyword  one per tagged video of the channel
//	video   - video    one per shared keyword
//
// Malformed records are skipped and reported through Graph.MalformedError.
// An empty input yields an empty graph.
func Build(recs []records.ContentRecord, window records.TimeWindow, opts Options) (*Graph, error) {
	b := NewBuilder(window)
	seen := make(map[NodeID]struct{}, len(recs))
	videos := make([]records.ContentRecord, 0, len(recs))

	for i, r := range recs {
		if r.ID == "" {
			b.skip(i, "", "missing id")
			continue
		}
		if !r.Kind.Valid() {
			b.skip(i, r.ID, "unknown kind "+string(r.Kind))
			continue
		}
		if r.Kind == records.KindVideo && r.ChannelID == "" {
			b.skip(i, r.ID, "video without channel_id")
			continue
		}
		key := r.ID
		if r.Kind == records.KindKeyword {
			key = records.NormalizeKeyword(r.ID)
			if key == "" {
				b.skip(i, r.ID, "blank keyword")
				continue
			}
		}
		id := MakeNodeID(r.Kind, key)
		if _, dup := seen[id]; dup {
			b.skip(i, r.ID, "duplicate record")
			continue
		}
		seen[id] = struct{}{}

		b.AddNode(Node{ID: id, Kind: r.Kind, Key: key, Label: r.Title, Metrics: r.Metrics})
		if r.Kind == records.KindVideo {
			videos = append(videos, r)
		}
	}

	byKeyword := make(map[NodeID][]NodeID)
	for _, v := range videos {
		videoID := MakeNodeID(records.KindVideo, v.ID)
		channelID := MakeNodeID(records.KindChannel, v.ChannelID)
		if !b.HasNode(channelID) {
			if opts.RequireChannels {
				return nil, constructionError("add_channel_edge", videoID, channelID, ErrMissingChannel)
			}
			b.AddNode(Node{ID: channelID, Kind: records.KindChannel, Key: v.ChannelID})
		}
		if err := b.AddEdge(channelID, videoID, 1); err != nil {
			return nil, err
		}

		for _, kw := range v.NormalizedKeywords() {
			kwID := MakeNodeID(records.KindKeyword, kw)
			b.AddNode(Node{ID: kwID, Kind: records.KindKeyword, Key: kw, Label: kw})
			if err := b.AddEdge(videoID, kwID, 1); err != nil {
				return nil, err
			}
			if err := b.AddEdge(channelID, kwID, 1); err != nil {
				return nil, err
			}
			byKeyword[kwID] = append(byKeyword[kwID], videoID)
		}
	}

	limit := opts.MaxVideosPerKeyword
	for kwID, tagged := range byKeyword {
		if limit > 0 && len(tagged) > limit {
			b.capped = append(b.capped, kwID)
			continue
		}
		for i := 0; i < len(tagged); i++ {
			for j := i + 1; j < len(tagged); j++ {
				if err := b.AddEdge(tagged[i], tagged[j], 1); err != nil {
					return nil, err
				}
			}
		}
	}

	return b.Build(), nil
}
