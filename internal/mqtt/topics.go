package mqtt

import "strings"

// Topic layout under the configured prefix:
//
//	<prefix>/connected                "true" | "false" (retained, LWT)
//	<prefix>/<addr>/position          percent, one decimal (retained)
//	<prefix>/<addr>/travel_time       seconds (retained)
//	<prefix>/<addr>/set               command verb or integer percent
//	<prefix>/<addr>/travel_time/set   seconds
const (
	positionLeaf  = "position"
	travelLeaf    = "travel_time"
	setLeaf       = "set"
	connectedLeaf = "connected"
)

func ConnectedTopic(prefix string) string {
	return prefix + "/" + connectedLeaf
}

func PositionTopic(prefix, addr string) string {
	return prefix + "/" + addr + "/" + positionLeaf
}

func TravelTimeTopic(prefix, addr string) string {
	return prefix + "/" + addr + "/" + travelLeaf
}

// CommandFilter matches every shade's command topic.
func CommandFilter(prefix string) string {
	return prefix + "/+/" + setLeaf
}

// TravelTimeFilter matches every shade's travel time command topic.
func TravelTimeFilter(prefix string) string {
	return prefix + "/+/" + travelLeaf + "/" + setLeaf
}

// splitCommandTopic returns the address of a command topic and whether it
// targets the travel time. ok is false for topics outside the layout.
func splitCommandTopic(prefix, topic string) (addr string, travel bool, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return "", false, false
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[1] == setLeaf:
		return parts[0], false, parts[0] != ""
	case len(parts) == 3 && parts[1] == travelLeaf && parts[2] == setLeaf:
		return parts[0], true, parts[0] != ""
	}
	return "", false, false
}
