package affinity

import "testing"

func TestPinAndUnpinCurrentCPU(t *testing.T) {
	err := Pin(0)
	if err != nil {
		t.Logf("Pin not supported in this environment: %v", err)
		return
	}
	if err := Unpin(); err != nil {
		t.Errorf("Unpin after successful Pin: %v", err)
	}
}
