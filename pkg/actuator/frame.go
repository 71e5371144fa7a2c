// ABOUTME: Binary frame encoding for the actuator serial link
// ABOUTME: SOF-delimited frames with an XOR checksum
package actuator

// Wire constants shared by the valve controller and the stepper driver.
const (
	sof0 = 0xAA
	sof1 = 0x55

	cmdValveSet     = 0x20 // payload: [valve int8][state byte]
	cmdAllOff       = 0x21 // payload: empty
	cmdSetFrequency = 0x30 // payload: [centihertz uint32 LE], 0 = stop
)

// encodeFrame builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][payload...][CKS]
//
// LEN counts the CMD byte plus payload; CKS is the XOR of LEN, CMD and
// every payload byte.
func encodeFrame(cmd byte, payload []byte) []byte {
	length := byte(len(payload) + 1)
	cks := length ^ cmd
	for _, b := range payload {
		cks ^= b
	}

	out := make([]byte, 0, len(payload)+5)
	out = append(out, sof0, sof1, length, cmd)
	out = append(out, payload...)
	return append(out, cks)
}
