// Package codec owns the bridge wire contract.
//
// Inbound envelopes are four raw tag bytes followed by the RLP encoding of a
// versioned message. Outbound messages are plain RLP. Decoding is strict: the
// whole buffer must be consumed, integers must be canonical and every failure
// is reported as a types.KindDecode error.
package codec
