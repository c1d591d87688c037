package netlab

//
// Network link modeling
//

import (
	"fmt"
	"strings"
)

// LinkShape contains the characteristics of one direction of a link.
type LinkShape struct {
	// Bandwidth is the rate in Mbps. Zero means unlimited.
	Bandwidth float64

	// Loss is the packet loss in percent.
	Loss float64

	// Latency is the one-way delay in milliseconds.
	Latency float64

	// Jitter is the delay variation in milliseconds. We only apply it
	// when Latency is also positive.
	Jitter float64
}

// ShapeOf returns the [LinkShape] of the direction from node i to node j.
func ShapeOf(ms *MatrixSet, i, j int) LinkShape {
	return LinkShape{
		Bandwidth: ms.Bandwidth[i][j],
		Loss:      ms.Loss[i][j],
		Latency:   ms.Latency[i][j],
		Jitter:    ms.Jitter[i][j],
	}
}

// String implements fmt.Stringer
func (ls LinkShape) String() string {
	return fmt.Sprintf("bandwidth %sMbps loss %s%% latency %sms jitter %sms",
		formatNumber(ls.Bandwidth), formatNumber(ls.Loss),
		formatNumber(ls.Latency), formatNumber(ls.Jitter))
}

// tbfBurstFactor is the ratio between the TBF burst (kb) and the rate (Mbps).
const tbfBurstFactor = 1.25

// EgressCommands returns the commands limiting the rate of the traffic
// leaving intf using a token bucket filter. The 1ms latency is the TBF
// queueing bound, not the link latency. A zero bandwidth yields no commands.
func EgressCommands(intf string, bandwidth float64) []string {
	if bandwidth <= 0 {
		return nil
	}
	return []string{
		fmt.Sprintf("tc qdisc add dev %s root handle 1: tbf rate %smbit burst %skb latency 1ms",
			intf, formatNumber(bandwidth), formatNumber(bandwidth*tbfBurstFactor)),
	}
}

// IngressCommands returns the commands emulating loss, delay and jitter
// on the traffic entering intf. Since queueing disciplines only act on
// egress, we redirect the incoming traffic to the ifb device and we attach
// netem to the ifb egress. Jitter is only added when delay is positive.
func IngressCommands(intf, ifb string, shape LinkShape) []string {
	var netem strings.Builder
	fmt.Fprintf(&netem, "tc qdisc add dev %s root handle 1: netem loss %s%% delay %sms",
		ifb, formatNumber(shape.Loss), formatNumber(shape.Latency))
	if shape.Jitter > 0 && shape.Latency > 0 {
		fmt.Fprintf(&netem, " %sms distribution normal", formatNumber(shape.Jitter))
	}
	return []string{
		fmt.Sprintf("ip link add name %s type ifb", ifb),
		fmt.Sprintf("ip link set dev %s up", ifb),
		fmt.Sprintf("tc qdisc add dev %s handle ffff: ingress", intf),
		fmt.Sprintf("tc filter add dev %s parent ffff: protocol ip u32 match u32 0 0 action mirred egress redirect dev %s",
			intf, ifb),
		netem.String(),
	}
}

// ForwardingCommand enables IPv4 forwarding.
const ForwardingCommand = "sysctl -w net.ipv4.ip_forward=1"

// interfaceName returns the name of the k-th link interface of a host.
func interfaceName(host string, k int) string {
	return fmt.Sprintf("%s-eth%d", host, k)
}

// ifbName returns the name of the ifb device shadowing the k-th link
// interface of a host. Every host lives in its own namespace, so the
// name only needs to be unique within the host.
func ifbName(k int) string {
	return fmt.Sprintf("ifb%d", k)
}

// realizedLink is a link created by the [Realizer].
type realizedLink struct {
	// a and b are the node indexes with a < b.
	a, b int

	// handle contains the interface names.
	handle *LinkHandle

	// addrA and addrB are the interface addresses in CIDR notation.
	addrA, addrB string

	// ifbA and ifbB are the ifb devices on each side.
	ifbA, ifbB string
}
