package fileserver

import (
	"mime"
	"strconv"
	"strings"
)

// Media types a directory listing can be rendered as.
const (
	MediaHTML     = "text/html"
	MediaJSON     = "application/json"
	MediaMarkdown = "text/markdown"
)

// ListingFormats lists the listing media types in server preference order.
var ListingFormats = []string{MediaHTML, MediaJSON, MediaMarkdown}

// mediaRange is one element of an Accept header, e.g. "text/*;q=0.8".
type mediaRange struct {
	typ, subtype string
	q            float64
}

// Negotiate selects the offer preferred by the given Accept header value.
//
// Each offer is weighted by the quality value of the most specific media
// range matching it ("type/subtype" over "type/*" over "*/*"). The offer with
// the highest non-zero weight wins; ties go to the offer listed first. When
// the header is empty, unparsable or matches nothing, the first offer is
// returned, so the result is never empty for a non-empty offer list.
func Negotiate(accept string, offers []string) string {
	if len(offers) == 0 {
		return ""
	}
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return offers[0]
	}

	best, bestQ := offers[0], 0.0
	for _, offer := range offers {
		if q := quality(ranges, offer); q > bestQ {
			best, bestQ = offer, q
		}
	}
	return best
}

func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mediaType, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}
		typ, subtype, ok := strings.Cut(mediaType, "/")
		if !ok {
			continue
		}
		r := mediaRange{typ: typ, subtype: subtype, q: 1}
		if v, ok := params["q"]; ok {
			q, err := strconv.ParseFloat(v, 64)
			if err != nil || q < 0 || q > 1 {
				continue
			}
			r.q = q
		}
		ranges = append(ranges, r)
	}
	return ranges
}

// quality returns the weight of the offer under the most specific matching
// range, or zero when no range matches.
func quality(ranges []mediaRange, offer string) float64 {
	typ, subtype, _ := strings.Cut(offer, "/")
	q, specificity := 0.0, -1
	for _, r := range ranges {
		var s int
		switch {
		case r.typ == typ && r.subtype == subtype:
			s = 2
		case r.typ == typ && r.subtype == "*":
			s = 1
		case r.typ == "*" && r.subtype == "*":
			s = 0
		default:
			continue
		}
		if s > specificity {
			q, specificity = r.q, s
		}
	}
	return q
}
