package digest_test

import (
	"testing"

	"github.com/ardanlabs/chainsim/foundation/simulator/digest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Hash(t *testing.T) {
	t.Log("Given the need to validate the hash primitive.")
	{
		t.Logf("\tTest 0:\tWhen hashing the same data twice.")
		{
			h1 := digest.SHA256Hex([]byte("the quick brown fox"))
			h2 := digest.SHA256Hex([]byte("the quick brown fox"))

			if h1 != h2 {
				t.Fatalf("\t%s\tTest 0:\tShould get the same hash for the same data: %s != %s", failed, h1, h2)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same hash for the same data.", success)

			if len(h1) != digest.Size {
				t.Fatalf("\t%s\tTest 0:\tShould get a hash of %d characters: got %d", failed, digest.Size, len(h1))
			}
			t.Logf("\t%s\tTest 0:\tShould get a hash of %d characters.", success, digest.Size)

			for _, c := range h1 {
				if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
					t.Fatalf("\t%s\tTest 0:\tShould get lowercase hex output: found %q", failed, c)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould get lowercase hex output.", success)
		}

		t.Logf("\tTest 1:\tWhen hashing different data.")
		{
			h1 := digest.SHA256Hex([]byte("alpha"))
			h2 := digest.SHA256Hex([]byte("beta"))

			if h1 == h2 {
				t.Fatalf("\t%s\tTest 1:\tShould get different hashes for different data.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get different hashes for different data.", success)
		}
	}
}

func Test_Pad(t *testing.T) {
	type table struct {
		name  string
		input string
		want  string
	}

	tt := []table{
		{"short", "abc", "abc" + digest.Zero[3:]},
		{"empty", "", digest.Zero},
		{"exact", digest.Zero, digest.Zero},
		{"long", digest.Zero + "ff", digest.Zero},
	}

	t.Log("Given the need to validate the fixed width padding contract.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen padding the %s case.", testID, tst.name)
			{
				f := func(t *testing.T) {
					got := digest.Pad(tst.input)

					if len(got) != digest.Size {
						t.Fatalf("\t%s\tTest %d:\tShould get %d characters: got %d", failed, testID, digest.Size, len(got))
					}
					t.Logf("\t%s\tTest %d:\tShould get %d characters.", success, testID, digest.Size)

					if got != tst.want {
						t.Fatalf("\t%s\tTest %d:\tShould get the padded value.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the padded value.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
