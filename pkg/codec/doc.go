/*
Package codec implements the solution payload codec and the wire form of
record values.

Workers exchange best objective values ("records") through the agent, and a
record may carry the full solution file that achieved it. Solution files are
plain text and compress well, but the variable protocol carries
space-delimited text frames, so payloads must be both compact and printable.
The codec answers both needs: zlib compression wrapped in standard base64.

# Wire Forms

A bare record value:

	5.0000

A record value with an inline solution payload:

	5.0000:eJzLSM3JyVcozy/KSVEEABxJBD4=

Values are formatted with four fixed decimals; the payload after the colon
is base64 over a zlib stream of the raw solution bytes. Decoding is the
byte-exact inverse of encoding for every input, including the empty blob.

The unset sentinel NULL that bootstrap replies use for "no record yet" is
not a record and is rejected by ParseRecord; the protocol layer filters it
out before parsing.

# Usage

Publishing a record with its solution:

	blob, err := os.ReadFile("foo.sol")
	if err != nil {
		return err
	}
	wire := codec.FormatRecord(codec.Record{Value: 5.0, Solution: blob})
	// -> "5.0000:eJw..."

Applying a received record:

	rec, err := codec.ParseRecord(raw)
	if err != nil {
		return err // malformed frame, protocol violation
	}
	if rec.HasSolution() {
		os.WriteFile("insol-1.sol", rec.Solution, 0644)
	}

# Design Notes

Compression uses github.com/klauspost/compress/zlib, API-compatible with
the standard library but faster on the repetitive numeric text that makes
up solution files. Base64 is the standard alphabet with padding, which
contains no spaces and therefore always survives space-delimited frame
parsing.

Encoding cannot fail: compression writes into an in-memory buffer.
Decoding distinguishes transport-level corruption (bad base64) from
payload-level corruption (bad zlib stream) in its error text, since the
first points at framing bugs and the second at a peer speaking a different
codec.

# See Also

  - pkg/protocol: builds VAR_SET_MD frames from formatted records
  - pkg/worker: persists decoded payloads as insol-<seq>.sol files
*/
package codec
