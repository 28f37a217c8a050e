package humdrum

// AnalyzeHands marks kern tokens with the hand given by the nearest earlier
// "*LH" or "*RH" in their spine, stored as the "hand" annotation ("LH" or
// "RH"). Hand markers follow splits into subspines. It reports whether the
// file contains any hand marker.
func (f *File) AnalyzeHands() bool {
	hand := make(map[*Token]string)
	found := false
	for _, l := range f.lines {
		if !l.HasSpines() {
			continue
		}
		for _, t := range l.tokens {
			if !t.IsKern() {
				continue
			}
			switch t.text {
			case "*LH":
				hand[t] = "LH"
				found = true
			case "*RH":
				hand[t] = "RH"
				found = true
			default:
				if p := t.PreviousToken(); p != nil {
					hand[t] = hand[p]
				}
			}
			if h := hand[t]; h != "" {
				t.SetValue(AutoNamespace, "hand", h)
			} else {
				t.DeleteValue(AutoNamespace, "hand")
			}
		}
	}
	f.done.hands = true
	return found
}
