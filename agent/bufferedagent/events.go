package bufferedagent

import "github.com/d11dpool/channel/agent"

// BufferedPaymentsReceivedEvent occurs when a payment is received that
// contained buffered payments.
type BufferedPaymentsReceivedEvent struct {
	agent.PaymentReceivedEvent
	BufferID string
	Payments []BufferedPayment
}

// BufferedPaymentsSentEvent occurs when a payment is sent that contained
// buffered payments.
type BufferedPaymentsSentEvent struct {
	agent.PaymentSentEvent
	BufferID string
	Payments []BufferedPayment
}
