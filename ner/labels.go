package ner

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Label names for the sensitive-information taxonomy. LabelNone marks a
// token that carries no entity; it is used internally during aggregation
// and never appears in a LineResult.
const (
	LabelNone                = "O"
	LabelBenign              = "BENIGN"
	LabelNetworkInformation  = "NETWORK_INFORMATION"
	LabelSecurityCredentials = "SECURITY_CREDENTIALS"
	LabelPersonalData        = "PERSONAL_DATA"
)

// LabelSet maps model class indices to label names. It is immutable after
// construction and passed into the Engine explicitly so the id mapping is
// never hidden global state.
type LabelSet struct {
	idToLabel  map[int]string
	labelToID  map[string]int
	numClasses int
}

// DefaultLabels returns the label mapping the pretrained model ships with.
// Class 0 is the "no entity" slot; -100 is the training-time ignore id and
// never appears in model output.
func DefaultLabels() LabelSet {
	labelToID := map[string]int{
		LabelNone:                -100,
		LabelNetworkInformation:  1,
		LabelBenign:              2,
		LabelSecurityCredentials: 3,
		LabelPersonalData:        4,
	}
	idToLabel := make(map[int]string, len(labelToID))
	for label, id := range labelToID {
		idToLabel[id] = label
	}
	return LabelSet{
		idToLabel:  idToLabel,
		labelToID:  labelToID,
		numClasses: 5,
	}
}

// LoadLabels reads a label_mappings.json side file from the model
// directory. The file holds id2label and label2id maps keyed by decimal
// strings, the same layout the training pipeline exports.
func LoadLabels(path string) (LabelSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the validated model directory
	if err != nil {
		return LabelSet{}, fmt.Errorf("failed to read label mappings: %w", err)
	}

	var raw struct {
		ID2Label map[string]string `json:"id2label"`
		Label2ID map[string]int    `json:"label2id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LabelSet{}, fmt.Errorf("failed to parse label mappings: %w", err)
	}
	if len(raw.ID2Label) == 0 {
		return LabelSet{}, fmt.Errorf("label mappings file %s contains no id2label entries", path)
	}

	idToLabel := make(map[int]string, len(raw.ID2Label))
	numClasses := 0
	for idStr, label := range raw.ID2Label {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return LabelSet{}, fmt.Errorf("invalid label id %q: %w", idStr, err)
		}
		idToLabel[id] = label
		// The -100 ignore id sits outside the class dimension.
		if id >= 0 && id >= numClasses {
			numClasses = id + 1
		}
	}
	if numClasses == 0 {
		numClasses = len(raw.Label2ID)
	}

	labelToID := raw.Label2ID
	if labelToID == nil {
		labelToID = make(map[string]int, len(idToLabel))
		for id, label := range idToLabel {
			labelToID[label] = id
		}
	}

	return LabelSet{
		idToLabel:  idToLabel,
		labelToID:  labelToID,
		numClasses: numClasses,
	}, nil
}

// Label returns the label name for a model class index. Unknown indices
// map to LabelNone, mirroring the model's "no entity" slot.
func (ls LabelSet) Label(class int) string {
	if label, ok := ls.idToLabel[class]; ok {
		return label
	}
	return LabelNone
}

// ID returns the class id for a label name, or false if the label is not
// part of the set.
func (ls LabelSet) ID(label string) (int, bool) {
	id, ok := ls.labelToID[label]
	return id, ok
}

// NumClasses returns the size of the model's output class dimension.
func (ls LabelSet) NumClasses() int {
	return ls.numClasses
}
