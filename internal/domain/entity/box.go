package entity

// BoundingBox область найденного объекта в координатах исходного изображения
type BoundingBox struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина области в пикселях
	Height int // высота области в пикселях
}

// Center возвращает координаты центра области
func (b BoundingBox) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area возвращает площадь области в пикселях
func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}
