package netlab

//
// Human-readable topology description
//

import "fmt"

// Describe returns a short description of a linear topology, e.g.:
//
//	Linear 2 hops, loss 1%, latency 20ms, jitter 5ms, bandwidth 100Mbps.
//
// When the two directions differ, the description contains a "forward path"
// line and a "reverse path" line instead. We describe the first link, since
// generated chains have uniform links. The result is empty when ms is nil or
// invalid, when the value matrices are unset, or when the topology is not a
// chain in node index order.
func Describe(ms *MatrixSet) string {
	if ms.Validate() != nil {
		return ""
	}
	if ms.Family != "" && ms.Family != FamilyLinear {
		return ""
	}
	n := ms.NumNodes()
	if n < 2 || !isChain(ms.Adjacency) {
		return ""
	}
	forward, reverse := ShapeOf(ms, 0, 1), ShapeOf(ms, 1, 0)
	if forward == (LinkShape{}) && reverse == (LinkShape{}) {
		return ""
	}
	if forward == reverse {
		return fmt.Sprintf("Linear %d hops, %s", n-1, describeShape(forward))
	}
	return fmt.Sprintf("Linear %d hops\nforward path: %s\nreverse path: %s",
		n-1, describeShape(forward), describeShape(reverse))
}

func describeShape(ls LinkShape) string {
	return fmt.Sprintf("loss %s%%, latency %sms, jitter %sms, bandwidth %sMbps.",
		formatNumber(ls.Loss), formatNumber(ls.Latency),
		formatNumber(ls.Jitter), formatNumber(ls.Bandwidth))
}

// isChain returns whether the only links are (i, i+1).
func isChain(adj Matrix) bool {
	n := adj.Dim()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if adj.Linked(i, j) != (j == i+1) {
				return false
			}
		}
	}
	return true
}
