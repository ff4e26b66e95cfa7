package mx5

// Frame is a classical CAN frame as handed over by the transport
// collaborator. The transport owns all controller bring-up; by the time a
// frame reaches this package it is just an ID and up to 8 payload bytes.
type Frame struct {
	ID     uint32
	Length uint8
	Data   [8]byte
}
