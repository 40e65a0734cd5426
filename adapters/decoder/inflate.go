package decoder

import "sync"

// inflatePrefix decodes a raw DEFLATE stream that may be cut short and
// returns every byte produced before the input ran out or turned invalid,
// capped at limit.  Library inflaters hold back up to a window of output
// when their input ends early; rows already decoded would be lost.
func inflatePrefix(src []byte, limit int) []byte {
	in := &bitReader{src: src}
	out := make([]byte, 0, min(limit, 4*len(src)+64))
	for len(out) < limit {
		last, ok := in.bits(1)
		if !ok {
			break
		}
		typ, ok := in.bits(2)
		if !ok {
			break
		}
		switch typ {
		case 0:
			out, ok = in.stored(out, limit)
		case 1:
			fixedOnce()
			out, ok = in.codes(out, limit, &fixedLen, &fixedDist)
		case 2:
			var lc, dc huffman
			if ok = in.dynamic(&lc, &dc); ok {
				out, ok = in.codes(out, limit, &lc, &dc)
			}
		default:
			ok = false
		}
		if !ok || last == 1 {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type bitReader struct {
	src []byte
	pos int
	buf uint32
	cnt uint
}

func (r *bitReader) bits(n uint) (uint32, bool) {
	for r.cnt < n {
		if r.pos >= len(r.src) {
			return 0, false
		}
		r.buf |= uint32(r.src[r.pos]) << r.cnt
		r.pos++
		r.cnt += 8
	}
	v := r.buf & (1<<n - 1)
	r.buf >>= n
	r.cnt -= n
	return v, true
}

func (r *bitReader) stored(out []byte, limit int) ([]byte, bool) {
	r.buf, r.cnt = 0, 0
	if r.pos+4 > len(r.src) {
		return out, false
	}
	n := int(r.src[r.pos]) | int(r.src[r.pos+1])<<8
	if n != ^(int(r.src[r.pos+2])|int(r.src[r.pos+3])<<8)&0xffff {
		return out, false
	}
	r.pos += 4
	avail := min(n, len(r.src)-r.pos, limit-len(out))
	out = append(out, r.src[r.pos:r.pos+avail]...)
	r.pos += avail
	return out, avail == n
}

type huffman struct {
	count  [16]uint16
	symbol []uint16
}

func (h *huffman) build(lengths []uint8) {
	h.count = [16]uint16{}
	for _, l := range lengths {
		h.count[l]++
	}
	var offs [16]uint16
	for l := 1; l < 15; l++ {
		offs[l+1] = offs[l] + h.count[l]
	}
	h.symbol = make([]uint16, len(lengths))
	for sym, l := range lengths {
		if l != 0 {
			h.symbol[offs[l]] = uint16(sym)
			offs[l]++
		}
	}
}

func (r *bitReader) decode(h *huffman) (int, bool) {
	code, first, index := 0, 0, 0
	for l := 1; l < 16; l++ {
		b, ok := r.bits(1)
		if !ok {
			return 0, false
		}
		code |= int(b)
		count := int(h.count[l])
		if code-count < first {
			i := index + code - first
			if i < 0 || i >= len(h.symbol) {
				return 0, false
			}
			return int(h.symbol[i]), true
		}
		index += count
		first = (first + count) << 1
		code <<= 1
	}
	return 0, false
}

var (
	lenBase  = [29]uint16{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
	lenExtra = [29]uint8{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}
	distBase = [30]uint16{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
	distExtr = [30]uint8{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}

	codeLengthOrder = [19]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

	fixedLen, fixedDist huffman
	fixedTables         sync.Once
)

func fixedOnce() { fixedTables.Do(buildFixed) }

func buildFixed() {
	var l [288]uint8
	for i := range l {
		switch {
		case i < 144:
			l[i] = 8
		case i < 256:
			l[i] = 9
		case i < 280:
			l[i] = 7
		default:
			l[i] = 8
		}
	}
	fixedLen.build(l[:])
	var d [30]uint8
	for i := range d {
		d[i] = 5
	}
	fixedDist.build(d[:])
}

func (r *bitReader) dynamic(lc, dc *huffman) bool {
	hlit, ok1 := r.bits(5)
	hdist, ok2 := r.bits(5)
	hclen, ok3 := r.bits(4)
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	nlen, ndist := int(hlit)+257, int(hdist)+1
	var cl [19]uint8
	for i := 0; i < int(hclen)+4; i++ {
		v, ok := r.bits(3)
		if !ok {
			return false
		}
		cl[codeLengthOrder[i]] = uint8(v)
	}
	var clc huffman
	clc.build(cl[:])

	lengths := make([]uint8, nlen+ndist)
	for i := 0; i < len(lengths); {
		sym, ok := r.decode(&clc)
		if !ok {
			return false
		}
		if sym < 16 {
			lengths[i] = uint8(sym)
			i++
			continue
		}
		var rep uint32
		var val uint8
		switch sym {
		case 16:
			if i == 0 {
				return false
			}
			val = lengths[i-1]
			rep, ok = r.bits(2)
			rep += 3
		case 17:
			rep, ok = r.bits(3)
			rep += 3
		default:
			rep, ok = r.bits(7)
			rep += 11
		}
		if !ok || i+int(rep) > len(lengths) {
			return false
		}
		for ; rep > 0; rep-- {
			lengths[i] = val
			i++
		}
	}
	lc.build(lengths[:nlen])
	dc.build(lengths[nlen:])
	return true
}

func (r *bitReader) codes(out []byte, limit int, lc, dc *huffman) ([]byte, bool) {
	for len(out) < limit {
		sym, ok := r.decode(lc)
		if !ok {
			return out, false
		}
		switch {
		case sym < 256:
			out = append(out, byte(sym))
			continue
		case sym == 256:
			return out, true
		}
		sym -= 257
		if sym >= len(lenBase) {
			return out, false
		}
		extra, ok := r.bits(uint(lenExtra[sym]))
		if !ok {
			return out, false
		}
		n := int(lenBase[sym]) + int(extra)
		dsym, ok := r.decode(dc)
		if !ok || dsym >= len(distBase) {
			return out, false
		}
		if extra, ok = r.bits(uint(distExtr[dsym])); !ok {
			return out, false
		}
		dist := int(distBase[dsym]) + int(extra)
		if dist > len(out) {
			return out, false
		}
		for ; n > 0; n-- {
			out = append(out, out[len(out)-dist])
		}
	}
	return out, true
}
