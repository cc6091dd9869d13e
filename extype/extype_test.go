package extype

import "testing"

func TestUUIDExtensionIdentity(t *testing.T) {
	a := NewUUIDType()
	b := NewUUIDType()
	if a.ExtensionName() != UUIDExtensionName {
		t.Fatalf("ExtensionName() = %q, want %q", a.ExtensionName(), UUIDExtensionName)
	}
	if !a.ExtensionEquals(b) {
		t.Fatal("two UUIDType instances should compare equal")
	}
	if a.Serialize() != "" {
		t.Fatalf("Serialize() = %q, want empty", a.Serialize())
	}
}

func TestVBZSignalExtensionIdentity(t *testing.T) {
	a := NewVBZSignalType()
	b := NewVBZSignalType()
	if a.ExtensionName() != VBZSignalExtensionName {
		t.Fatalf("ExtensionName() = %q, want %q", a.ExtensionName(), VBZSignalExtensionName)
	}
	if !a.ExtensionEquals(b) {
		t.Fatal("two VBZSignalType instances should compare equal")
	}
}

func TestUUIDAndVBZSignalNotEqual(t *testing.T) {
	u := NewUUIDType()
	v := NewVBZSignalType()
	if u.ExtensionEquals(v) {
		t.Fatal("UUIDType and VBZSignalType must not compare equal")
	}
}

func TestRegisterAllIdempotentAndRefcounted(t *testing.T) {
	h1 := RegisterAll()
	h2 := RegisterAll()

	if refCounts[UUIDExtensionName] != 2 {
		t.Fatalf("refCounts[uuid] = %d, want 2", refCounts[UUIDExtensionName])
	}

	h1.Release()
	if _, stillRegistered := refCounts[UUIDExtensionName]; !stillRegistered {
		t.Fatal("type should remain registered while h2 is outstanding")
	}

	h2.Release()
	if _, stillRegistered := refCounts[UUIDExtensionName]; stillRegistered {
		t.Fatal("type should be unregistered once all handles are released")
	}

	// Releasing again must be a safe no-op.
	h1.Release()
	h2.Release()
}

func TestDeserializeRejectsWrongStorage(t *testing.T) {
	u := NewUUIDType()
	if _, err := u.Deserialize(NewVBZSignalType().StorageType(), ""); err == nil {
		t.Fatal("expected error deserializing UUIDType over large_binary storage")
	}
	if _, err := u.Deserialize(u.StorageType(), "unexpected"); err == nil {
		t.Fatal("expected error deserializing UUIDType with non-empty payload")
	}
}
