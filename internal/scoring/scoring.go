// Package scoring implements the AP scoring function and the accept/deny
// decision predicate. Every function here is pure over its store/config
// arguments except Decide, which additionally records a DeniedRequest when
// use_driver_recog is configured.
package scoring

import (
	"steerd.dev/steerd/internal/config"
	"steerd.dev/steerd/internal/store"
	"steerd.dev/steerd/internal/wire"
)

// Score computes an integer score for a (probe, ap) pair, higher is better.
// Contributions are additive and order-independent: permuting the order the
// weights are summed in never changes the result.
func Score(ap store.AP, probe store.ProbeEntry, m config.Metric) int32 {
	var s int32

	if probe.HTCapable && ap.HT {
		s += int32(m.HTSupport)
	}
	if probe.VHTCapable && ap.VHT {
		s += int32(m.VHTSupport)
	}
	if !ap.HT {
		s += int32(m.NoHTSupport)
	}
	if !ap.VHT {
		s += int32(m.NoVHTSupport)
	}
	if probe.Signal >= int32(m.RSSIThresholdHigh) {
		s += int32(m.RSSI)
	}
	if probe.Signal <= int32(m.RSSIThresholdLow) {
		s += int32(m.LowRSSI)
	}
	if ap.FreqMHz >= 5000 {
		s += int32(m.Freq)
	}
	if int(ap.ChannelUtilization) <= m.ChanUtilLow {
		s += int32(m.ChanUtil)
	}
	if int(ap.ChannelUtilization) >= m.ChanUtilHigh {
		s += int32(m.MaxChanUtil)
	}
	return s
}

// BetterAPAvailable reports whether some AP sharing current's SSID scores
// better for client than current does. In strict mode a strictly higher
// score is required; in non-strict mode an equal score with a
// lexicographically lower BSSID also counts (tie-break, see design notes).
// If current has no probe record at all, it is trivially beaten: another AP
// is objectively better because this one has no data on the client.
func BetterAPAvailable(st *store.Store, current, client wire.MacAddr, m config.Metric, strict bool) bool {
	currentAP, ok := st.APGet(current)
	if !ok {
		return true
	}

	currentProbe, ok := st.ProbeGet(current, client)
	if !ok {
		return true
	}
	curScore := Score(currentAP, currentProbe, m)

	for _, p := range st.ProbesForClient(client) {
		if p.BSSID == current {
			continue
		}
		ap, ok := st.APGet(p.BSSID)
		if !ok || ap.SSID != currentAP.SSID {
			continue
		}
		peerScore := Score(ap, p, m)
		if strict {
			if peerScore > curScore {
				return true
			}
			continue
		}
		if peerScore > curScore {
			return true
		}
		if peerScore == curScore && p.BSSID.Less(current) {
			return true
		}
	}
	return false
}

// Verdict is the outcome of Decide.
type Verdict int

const (
	Accept Verdict = iota
	Deny
)

// Decision is Decide's result: a verdict and, on Deny, the 802.11 status
// code to report to the AP.
type Decision struct {
	Verdict Verdict
	Reason  uint16
}

// Request is one inbound probe/auth/assoc event to be decided.
type Request struct {
	Kind   store.RequestKind
	BSSID  wire.MacAddr
	Client wire.MacAddr
}

// Decide implements the five-step decision procedure of the core:
// permit-list bypass, must-have-probe-first, insufficient-data accept,
// evaluation-disabled accept, and the better-AP-available check.
func Decide(st *store.Store, req Request, m config.Metric) Decision {
	if st.PermitContains(req.Client) {
		return Decision{Verdict: Accept}
	}

	p, ok := st.ProbeGet(req.BSSID, req.Client)
	if !ok {
		reason := m.DenyAuthReason
		if req.Kind == store.RequestProbe {
			reason = 17
		} else if req.Kind == store.RequestAssoc {
			reason = m.DenyAssocReason
		}
		d := Decision{Verdict: Deny, Reason: reason}
		recordDenial(st, req, m, d)
		return d
	}

	if p.Counter < uint32(m.MinProbeCount) {
		return Decision{Verdict: Accept}
	}

	switch req.Kind {
	case store.RequestProbe:
		if !m.EvalProbeReq {
			return Decision{Verdict: Accept}
		}
	case store.RequestAuth:
		if !m.EvalAuthReq {
			return Decision{Verdict: Accept}
		}
	case store.RequestAssoc:
		if !m.EvalAssocReq {
			return Decision{Verdict: Accept}
		}
	}

	if BetterAPAvailable(st, req.BSSID, req.Client, m, false) {
		reason := m.DenyAuthReason
		if req.Kind == store.RequestAssoc {
			reason = m.DenyAssocReason
		}
		d := Decision{Verdict: Deny, Reason: reason}
		recordDenial(st, req, m, d)
		return d
	}

	return Decision{Verdict: Accept}
}

func recordDenial(st *store.Store, req Request, m config.Metric, d Decision) {
	if !m.UseDriverRecog {
		return
	}
	st.DeniedInsert(store.DeniedRequest{
		BSSID:  req.BSSID,
		Client: req.Client,
		Kind:   req.Kind,
		Reason: d.Reason,
	})
}
