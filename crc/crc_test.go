package crc

import (
	"strings"
	"testing"
)

func makeCheck2(fun func(uint16, byte) uint16, tag string) func(t *testing.T, v1 uint16, v2 byte, expect uint16) {
	return func(t *testing.T, v1 uint16, v2 byte, expect uint16) {
		if fun(v1, v2) != expect {
			t.Errorf("%s(%04x, %02x) != %04x", tag, v1, v2, expect)
		}
	}
}

func makeCheckN(fun func(uint16, []byte) uint16, tag string) func(t *testing.T, v1 uint16, vs []byte, expect uint16) {
	return func(t *testing.T, v1 uint16, vs []byte, expect uint16) {
		if fun(v1, vs) != expect {
			t.Errorf("%s(%04x, "+strings.Repeat("%02x", len(vs))+") != %04x", tag, v1, vs, expect)
		}
	}
}

func TestReference(t *testing.T) {
	checkRef := makeCheck2(CRC16_p8408_reference, "CRC16_p8408_reference")
	checkRef(t, 0, 0x00, 0x0000)
	checkRef(t, 0, 0x55, 0x0528)
	checkRef(t, 0, 0xaa, 0x0a50)
	checkRef(t, 0, 0xff, 0x0f78)
	checkRef(t, 0x1234, 0x5a, 0x8a6a)
}

func TestLookup(t *testing.T) {
	checkNext := makeCheck2(CRC16_p8408_next, "CRC16_p8408_next")
	checkNext(t, 0, 0x00, 0x0000)
	checkNext(t, 0, 0x55, 0x0528)
	checkNext(t, 0, 0xaa, 0x0a50)
	checkNext(t, 0, 0xff, 0x0f78)
	checkN := makeCheckN(CRC16_p8408_n, "CRC16_p8408_n")
	checkN(t, 0, []byte("123456789"), 0x2189)
	checkN(t, 0, []byte{0x06, 0x00, 0xbe, 0xeb, 0xee}, 0xa280)
	checkN(t, 0, []byte{0x04, 0x0f, 0x30}, 0xd12a)
}

func TestLookupAgainstReference(t *testing.T) {
	for init := uint32(0); init <= 0xffff; init += 0x101 {
		for b := uint32(0); b < 0x100; b++ {
			ref := CRC16_p8408_reference(uint16(init), byte(b))
			next := CRC16_p8408_next(uint16(init), byte(b))
			if ref != next {
				t.Fatalf("reference=%04x next=%04x init=%04x data=%02x", ref, next, init, b)
			}
		}
	}
}

func TestCRC16(t *testing.T) {
	checkN := makeCheckN(CRC16, "CRC16")
	checkN(t, 0xffff, nil, 0xffff)
	checkN(t, 0xffff, []byte{0x00}, 0xffff)
	checkN(t, 0xffff, []byte{0xff}, 0xf087)
	checkN(t, 0xffff, []byte("123456789"), 0xde76)
	checkN(t, 0xffff, []byte("hello"), 0x0435)
	checkN(t, 0xffff, []byte{0xde, 0xad, 0xbe, 0xef}, 0xe6ea)
}
