package simd

func emptyMaskGeneric(ctrl []byte) Mask {
	_ = ctrl[GroupWidth-1]
	var m Mask
	for i := 0; i < GroupWidth; i++ {
		if ctrl[i] == Empty {
			m |= 1 << i
		}
	}
	return m
}

func matchMaskGeneric(ctrl []byte, tag byte) Mask {
	_ = ctrl[GroupWidth-1]
	var m Mask
	for i := 0; i < GroupWidth; i++ {
		if ctrl[i] == tag {
			m |= 1 << i
		}
	}
	return m
}

func presentMaskGeneric(ctrl []byte) Mask {
	_ = ctrl[GroupWidth-1]
	var m Mask
	for i := 0; i < GroupWidth; i++ {
		if ctrl[i]&0x80 == 0 {
			m |= 1 << i
		}
	}
	return m
}
