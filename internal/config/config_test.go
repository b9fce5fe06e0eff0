package config

import "testing"

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.TickSize != 0.5 {
		t.Errorf("TickSize = %v, want 0.5", c.TickSize)
	}
	if c.TimeStop != 1000 {
		t.Errorf("TimeStop = %v, want 1000", c.TimeStop)
	}
	if c.FinishWeight != 0.3 || c.StartWeight != 0.2 || c.PriceWeight != 0.5 {
		t.Errorf("weights = %v/%v/%v, want 0.3/0.2/0.5", c.FinishWeight, c.StartWeight, c.PriceWeight)
	}
	if c.StorePath != "" {
		t.Errorf("StorePath = %q, want empty", c.StorePath)
	}
	if c.MailboxSize != 4096 {
		t.Errorf("MailboxSize = %v, want 4096", c.MailboxSize)
	}
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	c := Default()
	c.TickSize = 1.25
	c.StorePath = "run.db"

	data, err := c.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := &Config{}
	if err := got.Unmarshal(data); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.TickSize != c.TickSize || got.StorePath != c.StorePath {
		t.Errorf("round-tripped config = %+v, want %+v", got, c)
	}
}
