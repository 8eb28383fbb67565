package checksum

const (
	adlerMod = 65521
	// adlerNMax is the largest n such that 255n(n+1)/2 + (n+1)(adlerMod-1)
	// fits in 32 bits, so the modulo can be deferred for that many bytes.
	adlerNMax = 5552
)

// AdlerInit is the Adler-32 of the empty input and the starting value for
// UpdateAdler32.
const AdlerInit uint32 = 1

// UpdateAdler32 continues a running Adler-32 with p.
func UpdateAdler32(adler uint32, p []byte) uint32 {
	s1, s2 := adler&0xffff, adler>>16
	for len(p) > 0 {
		n := len(p)
		if n > adlerNMax {
			n = adlerNMax
		}
		for _, b := range p[:n] {
			s1 += uint32(b)
			s2 += s1
		}
		s1 %= adlerMod
		s2 %= adlerMod
		p = p[n:]
	}
	return s2<<16 | s1
}

// Adler32 returns the Adler-32 of p.
func Adler32(p []byte) uint32 {
	return UpdateAdler32(AdlerInit, p)
}
