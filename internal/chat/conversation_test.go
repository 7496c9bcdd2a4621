package chat

import "testing"

func TestConversationSettingsMerge(t *testing.T) {
	s := DefaultConversationSettings()
	if !s.AllowFileSharing || !s.AllowMemberInvite {
		t.Fatal("defaults must allow file sharing and member invites")
	}

	no := false
	merged := s.Merge(SettingsPatch{AllowFileSharing: &no})
	if merged.AllowFileSharing {
		t.Error("patched field must change")
	}
	if !merged.AllowMemberInvite {
		t.Error("unpatched field must keep its value")
	}
	if !s.AllowFileSharing {
		t.Error("merge must not mutate the receiver")
	}
}

func TestConversationSettingsMerge_Retention(t *testing.T) {
	days := 30
	retention := &days
	s := DefaultConversationSettings()

	merged := s.Merge(SettingsPatch{MessageRetentionDays: &retention})
	if merged.MessageRetentionDays == nil || *merged.MessageRetentionDays != 30 {
		t.Fatal("retention must be set to 30 days")
	}

	var unlimited *int
	merged = merged.Merge(SettingsPatch{MessageRetentionDays: &unlimited})
	if merged.MessageRetentionDays != nil {
		t.Error("retention must be clearable back to unlimited")
	}
}

func TestConversationIsGroup(t *testing.T) {
	if (&Conversation{Type: ConversationDirect}).IsGroup() {
		t.Error("direct conversation must not be a group")
	}
	if !(&Conversation{Type: ConversationGroup}).IsGroup() {
		t.Error("group conversation must be a group")
	}
}
