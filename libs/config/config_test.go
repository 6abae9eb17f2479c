package config

import "testing"

func TestInt(t *testing.T) {
	t.Setenv("ROOMBOOK_TEST_INT", "")
	n, err := Int("ROOMBOOK_TEST_INT", 9)
	if err != nil || n != 9 {
		t.Fatalf("expected fallback 9, got %d (%v)", n, err)
	}

	t.Setenv("ROOMBOOK_TEST_INT", "22")
	n, err = Int("ROOMBOOK_TEST_INT", 9)
	if err != nil || n != 22 {
		t.Fatalf("expected 22, got %d (%v)", n, err)
	}

	t.Setenv("ROOMBOOK_TEST_INT", "ten")
	if _, err := Int("ROOMBOOK_TEST_INT", 9); err == nil {
		t.Fatal("expected error for malformed integer")
	}
}

func TestList(t *testing.T) {
	t.Setenv("ROOMBOOK_TEST_LIST", " Room 1, ,Room 2 ,")
	got := List("ROOMBOOK_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "Room 1" || got[1] != "Room 2" {
		t.Fatalf("unexpected list: %q", got)
	}

	t.Setenv("ROOMBOOK_TEST_LIST", " , ")
	got = List("ROOMBOOK_TEST_LIST", []string{"fallback"})
	if len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ROOMBOOK_TEST_BOOL", "")
	if !Bool("ROOMBOOK_TEST_BOOL", true) {
		t.Fatal("expected fallback true")
	}
	t.Setenv("ROOMBOOK_TEST_BOOL", "off")
	if Bool("ROOMBOOK_TEST_BOOL", true) {
		t.Fatal("expected false for off")
	}
	t.Setenv("ROOMBOOK_TEST_BOOL", "YES")
	if !Bool("ROOMBOOK_TEST_BOOL", false) {
		t.Fatal("expected true for YES")
	}
}
