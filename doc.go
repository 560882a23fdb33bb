// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commpump provides a packet-pump facility over byte transports.
//
// The packet-pump turns a live duplex byte channel (a serial line, a TCP
// socket, a wireless characteristic pair) into two typed queues: the
// outbound queue carries values to send, the inbound queue carries decoded
// values received. Two working loops, one per direction, move the values
// after startup.
//
// The transport layer is defined by the Transport interface, and built by a
// Factory. There are default implementations:
//   TCPConfig / NetconnTransport over net.Conn
//   SerialConfig / SerialTransport over go.bug.st/serial
//   WebsocketTransport over a websocket.Conn
//
// Values are converted by a Decoder on the read side and an Encoder on the
// write side, Passthrough moves raw chunks. More codecs (lines, length
// prefixed frames, CBOR, protobuf) are in the codec package.
//
// The loops stop independently. A transport error stops only the loop that
// saw it, and nothing is retried: watch Reader().Done() and Writer().Done()
// to decide about reconnecting. Terminate stops both loops at their next
// iteration. Queues are unbounded, there is no backpressure.
//
// Here is a quick example, a line based client.
//
//  func client() {
//  	cfg := commpump.TCPConfig{Address: "127.0.0.1:50000", Timeout: 10 * time.Millisecond}
//
//  	p, err := commpump.Spawn[string](context.Background(), cfg, codec.Lines(), codec.Lines())
//  	if err != nil {
//  		log.Fatal(err)
//  	}
//  	defer p.Terminate()
//
//  	p.Output("hello")
//
//  	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//  	defer cancel()
//  	line, err := p.Input(ctx)
//  	if err != nil {
//  		log.Fatal(err)
//  	}
//  	log.Printf("client receive line: %v", line)
//  }
//
// A codec like codec.Lines keeps partial frames between calls, give each
// direction its own instance.
package commpump
