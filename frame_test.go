package memvm

import "testing"

func TestEmptyFrameStackIsSingleEmptyFrame(t *testing.T) {
	fs := EmptyFrameStack()
	if len(fs) != 1 || len(fs[0]) != 0 {
		t.Fatalf("got %v, want [[]]", fs)
	}
}

func TestAddToFrameOnEmptyStackFails(t *testing.T) {
	_, err := addToFrame(FrameStack{}, 1)
	if err == nil {
		t.Fatal("expected EmptyFrameStack error")
	}
	if err.(*MemError).Kind != ErrEmptyFrameStack {
		t.Fatalf("got %v", err)
	}
}

func TestFreeFrameOnEmptyStackFails(t *testing.T) {
	_, _, err := freeFrame(FrameStack{})
	if err == nil || err.(*MemError).Kind != ErrEmptyFrameStack {
		t.Fatalf("got %v", err)
	}
}

func TestPushAddFreeRoundTrip(t *testing.T) {
	fs := EmptyFrameStack()
	fs = pushFreshFrame(fs)
	fs, err := addToFrame(fs, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 2 || fs[1][0] != 42 {
		t.Fatalf("got %v", fs)
	}
	fs, freed, err := freeFrame(fs)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 || len(freed) != 1 || freed[0] != 42 {
		t.Fatalf("got fs=%v freed=%v", fs, freed)
	}
}
