package core

import "stepgen/protocol"

var globalTransport *protocol.Transport

// InitTransport wires the command registry to a transport writing through
// write. A host reset halts and forgets all steppers.
func InitTransport(write func([]byte)) *protocol.Transport {
	globalTransport = protocol.NewTransport(write, DispatchCommand)
	globalTransport.SetResetCallback(ResetRampSteppers)
	return globalTransport
}

// HandleInput feeds received bytes to the transport and returns how many
// were consumed.
func HandleInput(data []byte) int {
	if globalTransport == nil {
		return len(data)
	}
	return globalTransport.Receive(data)
}

// SendResponse frames m on the global transport.
func SendResponse(m protocol.Message) error {
	if globalTransport == nil {
		return nil
	}
	return globalTransport.SendCommand(m.CommandID(), m.Encode)
}
