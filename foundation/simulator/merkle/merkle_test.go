package merkle_test

import (
	"testing"

	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
	"github.com/ardanlabs/chainsim/foundation/simulator/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func leafHashes(values ...string) []string {
	hashes := make([]string, len(values))
	for i, v := range values {
		hashes[i] = digest.SHA256Hex([]byte(v))
	}
	return hashes
}

func Test_RootHex(t *testing.T) {
	h := leafHashes("a", "b", "c", "d")

	type table struct {
		name   string
		leaves []string
		want   string
	}

	tt := []table{
		{
			name:   "empty",
			leaves: nil,
			want:   digest.Zero,
		},
		{
			name:   "single",
			leaves: h[:1],
			want:   h[0],
		},
		{
			name:   "pair",
			leaves: h[:2],
			want:   digest.SHA256Hex([]byte(h[0] + h[1])),
		},
		{
			name:   "odd",
			leaves: h[:3],
			want: digest.SHA256Hex([]byte(
				digest.SHA256Hex([]byte(h[0]+h[1])) + digest.SHA256Hex([]byte(h[2]+h[2])),
			)),
		},
		{
			name:   "even",
			leaves: h[:4],
			want: digest.SHA256Hex([]byte(
				digest.SHA256Hex([]byte(h[0]+h[1])) + digest.SHA256Hex([]byte(h[2]+h[3])),
			)),
		},
	}

	t.Log("Given the need to validate merkle root construction.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s leaf set.", testID, tst.name)
			{
				f := func(t *testing.T) {
					got := merkle.RootHex(digest.SHA256Hex, tst.leaves)
					if got != tst.want {
						t.Fatalf("\t%s\tTest %d:\tShould get the expected root.\n\t\tgot: %s\n\t\texp: %s", failed, testID, got, tst.want)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected root.", success, testID)

					again := merkle.RootHex(digest.SHA256Hex, tst.leaves)
					if got != again {
						t.Fatalf("\t%s\tTest %d:\tShould get the same root on a rebuild.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the same root on a rebuild.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_RootOrderMatters(t *testing.T) {
	t.Log("Given the need to validate the root depends on leaf order.")
	{
		t.Logf("\tTest 0:\tWhen reversing the leaves.")
		{
			h := leafHashes("a", "b", "c", "d")
			forward := merkle.RootHex(digest.SHA256Hex, h)

			rev := []string{h[3], h[2], h[1], h[0]}
			backward := merkle.RootHex(digest.SHA256Hex, rev)

			if forward == backward {
				t.Fatalf("\t%s\tTest 0:\tShould get different roots for different orders.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get different roots for different orders.", success)
		}
	}
}
