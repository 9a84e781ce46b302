package crc

const CRC_POLY_8408 uint16 = 0x8408

// bit by bit, LSB first
func CRC16_p8408_reference(crc uint16, data byte) uint16 {
	crc ^= uint16(data)
	var i byte = 0
	for ; i < 8; i++ {
		if (crc & 1) != 0 {
			crc = (crc >> 1) ^ CRC_POLY_8408
		} else {
			crc >>= 1
		}
	}
	return crc
}

var crc16Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		crc16Table[i] = CRC16_p8408_reference(0, byte(i))
	}
}

func CRC16_p8408_next(crc uint16, data byte) uint16 {
	return crc16Table[byte(crc)^data] ^ (crc >> 8)
}

func CRC16_p8408_n(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = CRC16_p8408_next(crc, b)
	}
	return crc
}

// CRC16 is inverted on entry and exit to match ESP ROM crc16_le.
// Radio frames use init=0xffff.
func CRC16(init uint16, data []byte) uint16 {
	return ^CRC16_p8408_n(^init, data)
}
