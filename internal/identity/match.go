package identity

// MatchOptions configures ancestry matching for the return-eligibility gate.
type MatchOptions struct {
	// Required gates returns on ancestry at all. When false every identity
	// passes the ancestry gate.
	Required bool
	// SmoothingEnabled switches from exact equality to mismatch counting once
	// SmoothingTick has been reached.
	SmoothingEnabled bool
	// SmoothingTick is the first tick at which smoothing applies.
	SmoothingTick int
	// SmoothingThreshold is the maximum effective mismatch that still matches.
	SmoothingThreshold int
}

// MatchAncestry reports whether an identity's ancestry matches an anchor's
// under the given options at the given tick. Before the smoothing tick (or
// with smoothing disabled) the match is exact string equality; after it, the
// mismatch count is smoothed and compared against the threshold.
func MatchAncestry(identityAncestry, anchorAncestry string, tick int, opts MatchOptions) bool {
	if !opts.Required {
		return true
	}
	if opts.SmoothingEnabled && tick >= opts.SmoothingTick {
		return SmoothMismatch(CountMismatch(identityAncestry, anchorAncestry)) <= opts.SmoothingThreshold
	}
	return identityAncestry == anchorAncestry
}

// CountMismatch counts position-wise differing tags between two ancestry
// strings. A length difference counts one mismatch per surplus tag.
func CountMismatch(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	short := len(ra)
	if len(rb) < short {
		short = len(rb)
	}
	mismatch := len(ra) + len(rb) - 2*short
	for i := 0; i < short; i++ {
		if ra[i] != rb[i] {
			mismatch++
		}
	}
	return mismatch
}

// SmoothMismatch collapses mismatch counts of 3 and 4 to an effective
// mismatch of 2. The table is empirical; counts outside it pass through
// unchanged.
func SmoothMismatch(mismatch int) int {
	switch mismatch {
	case 3, 4:
		return 2
	default:
		return mismatch
	}
}
