package wireclass

import "testing"

func TestWidths(t *testing.T) {
	cases := map[DataType]int{
		DataTypeI8:  1,
		DataTypeI16: 2,
		DataTypeI32: 4,
		DataTypeF32: 4,
		DataTypeF64: 8,
	}
	for dt, want := range cases {
		if got := dt.Width(); got != want {
			t.Errorf("%s.Width() = %d, want %d", dt, got, want)
		}
	}
}

func TestWidthPanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid data type")
		}
	}()
	DataType(200).Width()
}

func TestParseDataType(t *testing.T) {
	if dt, ok := ParseDataType("f32"); !ok || dt != DataTypeF32 {
		t.Fatalf("ParseDataType(f32) = %v, %v", dt, ok)
	}
	if _, ok := ParseDataType("bogus"); ok {
		t.Fatal("expected ok=false for unknown type name")
	}
}

func TestClassOrdinalOrder(t *testing.T) {
	if !(ClassA < ClassB && ClassB < ClassC && ClassC < ClassRandom) {
		t.Fatal("class ordinal order must be A < B < C < random")
	}
	if NumClasses != 4 {
		t.Fatalf("NumClasses = %d, want 4", NumClasses)
	}
}
