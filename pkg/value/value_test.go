package value

import "testing"

func TestParseHexForms(t *testing.T) {
	cases := map[string]uint8{"0x1F": 0x1F, "$1F": 0x1F, "1Fh": 0x1F}
	for tok, want := range cases {
		v, err := Parse(tok, InputContext)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tok, err)
		}
		if v.Kind != Exact || v.Byte != want {
			t.Fatalf("Parse(%q) = %v, want EXACT(%02X)", tok, v, want)
		}
	}
}

func TestParseBinaryForms(t *testing.T) {
	v, err := Parse("%1010", InputContext)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.Byte != 0x0A {
		t.Fatalf("v.Byte = %02X, want 0A", v.Byte)
	}
}

func TestParseWildcards(t *testing.T) {
	for _, tok := range []string{"?", "??", "ANY", "0x?F"} {
		v, err := Parse(tok, InputContext)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tok, err)
		}
		if v.Kind != Any {
			t.Fatalf("Parse(%q).Kind = %v, want Any", tok, v.Kind)
		}
	}
}

func TestSameAndEquRejectedOnInputs(t *testing.T) {
	for _, tok := range []string{"SAME", "EQU"} {
		if _, err := Parse(tok, InputContext); err == nil {
			t.Fatalf("Parse(%q) in InputContext should fail", tok)
		}
	}
}

func TestSameAndEquAcceptedOnOutputs(t *testing.T) {
	for _, tok := range []string{"SAME", "EQU"} {
		v, err := Parse(tok, OutputContext)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tok, err)
		}
		if tok == "SAME" && v.Kind != Same {
			t.Fatalf("got %v, want Same", v.Kind)
		}
	}
}

func TestParseOverflowRejected(t *testing.T) {
	if _, err := Parse("256", InputContext); err == nil {
		t.Fatal("Parse(256) should overflow a byte")
	}
}

func TestParseRunExpandsRepetition(t *testing.T) {
	cells, err := ParseRun(":3 0x00 0xFF END", InputContext)
	if err != nil {
		t.Fatalf("ParseRun: %v", err)
	}
	if len(cells) != 4 {
		t.Fatalf("len(cells) = %d, want 4", len(cells))
	}
	for i := 0; i < 3; i++ {
		if cells[i].Value.Byte != 0 {
			t.Fatalf("cells[%d] = %v, want EXACT(0)", i, cells[i].Value)
		}
	}
	if cells[3].Value.Byte != 0xFF {
		t.Fatalf("cells[3] = %v, want EXACT(FF)", cells[3].Value)
	}
}

func TestParseRunStopsAtEnd(t *testing.T) {
	cells, err := ParseRun("0x01 END 0x02", InputContext)
	if err != nil {
		t.Fatalf("ParseRun: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("len(cells) = %d, want 1 (END should truncate)", len(cells))
	}
}
