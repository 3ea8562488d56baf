package models

// Course — курс учебной программы. Id курса задаёт порядок открытия.
type Course struct {
	ID    int    `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Parts []Part `json:"parts" yaml:"parts"`
}

// Part — часть курса (PDF-документ). Id — позиция части внутри курса, начиная с 1.
type Part struct {
	ID      int    `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	PDFPath string `json:"pdfPath" yaml:"pdf_path"`
}

// PartIDs возвращает id всех частей курса в порядке следования.
func (c Course) PartIDs() []int {
	ids := make([]int, 0, len(c.Parts))
	for _, p := range c.Parts {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasPart сообщает, есть ли в курсе часть с указанным id.
func (c Course) HasPart(id int) bool {
	for _, p := range c.Parts {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Exam — экзамен по части курса.
type Exam struct {
	CourseID  int        `json:"courseId" yaml:"course"`
	PartID    int        `json:"partId" yaml:"part"`
	PassScore int        `json:"passScore" yaml:"pass_score"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Question — вопрос экзамена с вариантами ответа.
type Question struct {
	Text         string   `json:"text" yaml:"text"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"-" yaml:"correct_index"`
}
