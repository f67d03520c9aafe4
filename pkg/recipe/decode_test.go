package recipe

import (
	"testing"
)

func TestDecodeInstructions_KnownTypes(t *testing.T) {
	data := []byte(`[
		{"type":"copy","file_path":"/bin/foo","destination":"/usr/local/bin","version":"1.2.3"},
		{"type":"copy_dir","folder_path":"/etc/foo","destination":"/etc/foo"},
		{"type":"run_command","command":"systemctl daemon-reload","restart":true},
		{"type":"run_script","file_path":"/scripts/post.sh"}
	]`)

	insts, err := DecodeInstructions(data)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(insts) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(insts))
	}
	if insts[0].Type != InstructionCopy || insts[0].Version != "1.2.3" {
		t.Errorf("unexpected first instruction: %+v", insts[0])
	}
	if !insts[2].Restart {
		t.Errorf("expected run_command instruction to carry restart=true")
	}
}

func TestDecodeInstructions_UnknownTypeSkipped(t *testing.T) {
	data := []byte(`[
		{"type":"copy","file_path":"/bin/foo","destination":"/usr/local/bin"},
		{"type":"reboot_host"}
	]`)

	insts, err := DecodeInstructions(data)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("expected unknown-type instruction to be skipped, got %d instructions", len(insts))
	}
}

func TestDecodeInstructions_InvalidJSON(t *testing.T) {
	if _, err := DecodeInstructions([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
