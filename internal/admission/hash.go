package admission

// hashSeeds are the four independent seeds the admission filter mixes into
// its rolling checksum, one per bit it sets/tests for a given path.
var hashSeeds = [4]uint16{3, 6, 2, 1}

// hash advances a 16-bit rolling checksum one input byte at a time:
// fold the high byte of the state with the next byte, smear it with a
// right-shift XOR, then mix the result back into the state.
//
// hash(0, "meow im a fox") == 29020.
func hash(seed uint16, data []byte) uint16 {
	state := seed
	for _, c := range data {
		high := byte(state >> 8)
		x := high ^ c
		x ^= x >> 4
		state = (state << 8) ^ (uint16(x) << 12) ^ (uint16(x) << 5) ^ uint16(x)
	}
	return state
}
