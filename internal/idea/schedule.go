package idea

import "encoding/binary"

// expandKey builds the 52-word encryption subkey schedule EK from a 128-bit
// key. The first 8 words are the key itself, big-endian; every subsequent
// word is formed by rotating a 9-bit window across the previous 8-word
// block, with the source block advancing every 8 words. This indexing
// pattern (not a generic "rotate left 25 bits" description) must be
// reproduced exactly for the schedule to match the reference vectors.
func expandKey(key [KeySize]byte) [52]uint16 {
	var ek [52]uint16
	for j := 0; j != 8; j++ {
		ek[j] = binary.BigEndian.Uint16(key[2*j : 2*j+2])
	}

	offset := 0
	for j, k := 1, 8; k != 52; k++ {
		a := (j % 8) + offset
		b := ((j + 1) % 8) + offset
		ek[j+7+offset] = (ek[a] << 9) | (ek[b] >> 7)

		if j == 8 {
			offset += 8
		}
		j = j%8 + 1
	}

	return ek
}

// invertKey derives the decryption subkey schedule DK from EK, so that
// transformBlock(DK, transformBlock(EK, x)) == x for every block x.
func invertKey(ek [52]uint16) [52]uint16 {
	var dk [52]uint16

	dk[51] = mulInv(ek[3])
	dk[50] = negate(ek[2])
	dk[49] = negate(ek[1])
	dk[48] = mulInv(ek[0])

	counter := 47
	for j, k := 1, 4; j != 8; j, k = j+1, k+6 {
		dk[counter] = ek[k+1]
		counter--
		dk[counter] = ek[k]
		counter--
		dk[counter] = mulInv(ek[k+5])
		counter--
		dk[counter] = negate(ek[k+3])
		counter--
		dk[counter] = negate(ek[k+4])
		counter--
		dk[counter] = mulInv(ek[k+2])
		counter--
	}

	dk[5] = ek[47]
	dk[4] = ek[46]
	dk[3] = mulInv(ek[51])
	dk[2] = negate(ek[50])
	dk[1] = negate(ek[49])
	dk[0] = mulInv(ek[48])

	return dk
}

// negate computes the additive inverse of x modulo 2^16.
func negate(x uint16) uint16 {
	return -x
}

// mulInv returns the multiplicative inverse of x modulo 65537, with 0
// standing in for 2^16. 0 and 1 are fixed points. Computed by the extended
// Euclidean algorithm specialized to the prime 65537.
func mulInv(x uint16) uint16 {
	if x <= 1 {
		return x
	}

	t0 := uint16(65537 / uint32(x))
	t1 := uint16(1)
	y := uint16(65537 % uint32(x))

	for y != 1 {
		q := x / y
		x %= y
		t1 += q * t0
		if x == 1 {
			return t1
		}
		q = y / x
		y %= x
		t0 += q * t1
	}
	return 1 - t0
}
