package config

// SnapshotDiff describes what changed between two Configuration snapshots.
// The Supervisor uses it to decide which components need to be reconfigured
// or restarted when applying a set_config command.
type SnapshotDiff struct {
	// ModelChanged is true if the ASR model path or decoding parameters
	// changed, requiring the ASR Worker to reload its engine. A change of
	// language alone sets LanguageOnlyChanged instead.
	ModelChanged bool `json:"model_changed"`

	// LanguageOnlyChanged is true if only Language differs and everything
	// else in Model is identical — this can be applied via the engine's
	// set_language without a full reload.
	LanguageOnlyChanged bool `json:"language_only_changed"`

	// VADChanged is true if any VAD parameter changed, requiring the VAD
	// Segmenter to reset its state machine and noise floor.
	VADChanged bool `json:"vad_changed"`

	// AudioChanged is true if the audio device parameters changed, requiring
	// the Audio Source to be stopped and reopened.
	AudioChanged bool `json:"audio_changed"`

	// SocketPathChanged is true if the control socket path changed. The
	// Supervisor does not hot-apply this; it is reported for visibility
	// only, since the listening socket is bound once at startup.
	SocketPathChanged bool `json:"socket_path_changed"`
}

// Any reports whether the diff contains any change at all.
func (d SnapshotDiff) Any() bool {
	return d.ModelChanged || d.LanguageOnlyChanged || d.VADChanged || d.AudioChanged || d.SocketPathChanged
}

// Diff compares two Configuration snapshots and reports which
// hot-reloadable parts changed.
func Diff(old, new Snapshot) SnapshotDiff {
	var d SnapshotDiff

	if old.Model != new.Model {
		d.ModelChanged = true
		stripped := old.Model
		stripped.Language = new.Model.Language
		if stripped == new.Model {
			d.ModelChanged = false
			d.LanguageOnlyChanged = old.Model.Language != new.Model.Language
		}
	}

	if old.VAD != new.VAD {
		d.VADChanged = true
	}

	if old.Audio != new.Audio {
		d.AudioChanged = true
	}

	if old.SocketPath != new.SocketPath {
		d.SocketPathChanged = true
	}

	return d
}
