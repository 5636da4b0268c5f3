package screening

// FieldCount is the number of measurements a complete session holds.
const FieldCount = 8

// FieldDefinition describes one required measurement
type FieldDefinition struct {
	ID     string  `json:"id"`
	Column string  `json:"column"` // model column name the artifacts were fit with
	Prompt string  `json:"prompt"`
	Label  string  `json:"label"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Order  int     `json:"order"`
}

// fields is ordered exactly as the scaler and classifier were trained.
var fields = [FieldCount]FieldDefinition{
	{ID: "pregnancies", Column: "Pregnancies", Label: "Pregnancies", Prompt: "Pregnancies (0-17): ", Min: 0, Max: 17, Order: 0},
	{ID: "glucose", Column: "Glucose", Label: "Glucose", Prompt: "Glucose (0-199): ", Min: 0, Max: 199, Order: 1},
	{ID: "blood_pressure", Column: "BloodPressure", Label: "Blood Pressure", Prompt: "Blood Pressure (0-122): ", Min: 0, Max: 122, Order: 2},
	{ID: "skin_thickness", Column: "SkinThickness", Label: "Skin Thickness", Prompt: "Skin Thickness (0-99): ", Min: 0, Max: 99, Order: 3},
	{ID: "insulin", Column: "Insulin", Label: "Insulin", Prompt: "Insulin (0-846): ", Min: 0, Max: 846, Order: 4},
	{ID: "bmi", Column: "BMI", Label: "BMI", Prompt: "BMI (0-67): ", Min: 0, Max: 67, Order: 5},
	{ID: "diabetes_pedigree_function", Column: "DiabetesPedigreeFunction", Label: "Diabetes Pedigree Function", Prompt: "Diabetes Pedigree Function (0.078-2.42): ", Min: 0.078, Max: 2.42, Order: 6},
	{ID: "age", Column: "Age", Label: "Age", Prompt: "Age (21-81): ", Min: 21, Max: 81, Order: 7},
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, FieldCount)
	for i, f := range fields {
		m[f.ID] = i
	}
	return m
}()

// Fields returns the field definitions in canonical order.
func Fields() []FieldDefinition {
	out := make([]FieldDefinition, FieldCount)
	copy(out, fields[:])
	return out
}

// FieldByID looks up a field definition by identifier.
func FieldByID(id string) (FieldDefinition, bool) {
	i, ok := fieldIndex[id]
	if !ok {
		return FieldDefinition{}, false
	}
	return fields[i], true
}

// Columns returns the model column names in canonical order.
func Columns() []string {
	out := make([]string, FieldCount)
	for i, f := range fields {
		out[i] = f.Column
	}
	return out
}

// Contains reports whether v lies inside the inclusive [Min, Max] range.
func (f FieldDefinition) Contains(v float64) bool {
	return v >= f.Min && v <= f.Max
}
