package quadrant

import (
	"fmt"

	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Axis names used for record-derived items.
const (
	AxisSupply = "supply"
	AxisDemand = "demand"
)

// Items positions the records of one dimension on the supply (X) and demand
// (Y) axes. Item ids are graph node ids.
//
//   - keyword: supply = videos tagged with it; demand = its search_volume
//     when recorded, else the total views of the tagged videos.
//   - video: supply = other videos sharing at least one keyword;
//     demand = views.
//   - channel: supply = videos published; demand = their total views.
//
// Records without an id are ignored.
func Items(dimension records.Kind, recs []records.ContentRecord) ([]Item, error) {
	switch dimension {
	case records.KindKeyword:
		return keywordItems(recs), nil
	case records.KindVideo:
		return videoItems(recs), nil
	case records.KindChannel:
		return channelItems(recs), nil
	default:
		return nil, fmt.Errorf("unknown dimension %q", dimension)
	}
}

func videos(recs []records.ContentRecord) []records.ContentRecord {
	seen := make(map[string]struct{})
	out := make([]records.ContentRecord, 0, len(recs))
	for _, r := range recs {
		if r.Kind != records.KindVideo || r.ID == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func keywordItems(recs []records.ContentRecord) []Item {
	type acc struct {
		supply, views float64
		volume        float64
		hasVolume     bool
	}
	byKeyword := make(map[string]*acc)
	get := func(kw string) *acc {
		a, ok := byKeyword[kw]
		if !ok {
			a = &acc{}
			byKeyword[kw] = a
		}
		return a
	}

	for _, v := range videos(recs) {
		for _, kw := range v.NormalizedKeywords() {
			a := get(kw)
			a.supply++
			a.views += v.Metric(records.MetricViews)
		}
	}
	for _, r := range recs {
		if r.Kind != records.KindKeyword {
			continue
		}
		kw := records.NormalizeKeyword(r.ID)
		if kw == "" {
			continue
		}
		a := get(kw)
		if r.HasMetric(records.MetricSearchVolume) {
			a.volume, a.hasVolume = r.Metric(records.MetricSearchVolume), true
		}
	}

	out := make([]Item, 0, len(byKeyword))
	for kw, a := range byKeyword {
		demand := a.views
		if a.hasVolume {
			demand = a.volume
		}
		out = append(out, Item{ID: string(graph.MakeNodeID(records.KindKeyword, kw)), X: a.supply, Y: demand})
	}
	return out
}

func videoItems(recs []records.ContentRecord) []Item {
	vids := videos(recs)
	byKeyword := make(map[string][]int)
	for i, v := range vids {
		for _, kw := range v.NormalizedKeywords() {
			byKeyword[kw] = append(byKeyword[kw], i)
		}
	}

	out := make([]Item, 0, len(vids))
	for i, v := range vids {
		peers := make(map[int]struct{})
		for _, kw := range v.NormalizedKeywords() {
			for _, j := range byKeyword[kw] {
				if j != i {
					peers[j] = struct{}{}
				}
			}
		}
		out = append(out, Item{
			ID: string(graph.MakeNodeID(records.KindVideo, v.ID)),
			X:  float64(len(peers)),
			Y:  v.Metric(records.MetricViews),
		})
	}
	return out
}

func channelItems(recs []records.ContentRecord) []Item {
	type acc struct{ supply, views float64 }
	byChannel := make(map[string]*acc)
	for _, r := range recs {
		if r.Kind == records.KindChannel && r.ID != "" {
			if _, ok := byChannel[r.ID]; !ok {
				byChannel[r.ID] = &acc{}
			}
		}
	}
	for _, v := range videos(recs) {
		if v.ChannelID == "" {
			continue
		}
		a, ok := byChannel[v.ChannelID]
		if !ok {
			a = &acc{}
			byChannel[v.ChannelID] = a
		}
		a.supply++
		a.views += v.Metric(records.MetricViews)
	}

	out := make([]Item, 0, len(byChannel))
	for id, a := range byChannel {
		out = append(out, Item{ID: string(graph.MakeNodeID(records.KindChannel, id)), X: a.supply, Y: a.views})
	}
	return out
}

// ClassifyRecords derives items for dimension and classifies them on the
// supply and demand axes.
func ClassifyRecords(dimension records.Kind, recs []records.ContentRecord, supply, demand *float64, labels map[ID]string) (*Result, error) {
	items, err := Items(dimension, recs)
	if err != nil {
		return nil, err
	}
	return Classify(items,
		AxisSpec{Name: AxisSupply, Threshold: supply},
		AxisSpec{Name: AxisDemand, Threshold: demand},
		labels,
	), nil
}
