package spectral

// MatchingFunction is one row of a tabulated CIE color-matching function.
type MatchingFunction struct {
	Wavelength int
	X          float64
	Y          float64
	Z          float64
}

const (
	cmfFirst = 360
	cmfLast  = 830
	cmfStep  = 5
)

// cie1931 holds the CIE 1931 2 degree standard observer at 5 nm.
var cie1931 = [...]MatchingFunction{
	{Wavelength: 360, X: 0.0001299, Y: 0.000003917, Z: 0.0006061},
	{Wavelength: 365, X: 0.0002321, Y: 0.000006965, Z: 0.001086},
	{Wavelength: 370, X: 0.0004149, Y: 0.00001239, Z: 0.001946},
	{Wavelength: 375, X: 0.0007416, Y: 0.00002202, Z: 0.003486},
	{Wavelength: 380, X: 0.001368, Y: 0.000039, Z: 0.00645},
	{Wavelength: 385, X: 0.002236, Y: 0.000064, Z: 0.01055},
	{Wavelength: 390, X: 0.004243, Y: 0.00012, Z: 0.02005},
	{Wavelength: 395, X: 0.00765, Y: 0.000217, Z: 0.03621},
	{Wavelength: 400, X: 0.01431, Y: 0.000396, Z: 0.06785},
	{Wavelength: 405, X: 0.02319, Y: 0.00064, Z: 0.1102},
	{Wavelength: 410, X: 0.04351, Y: 0.00121, Z: 0.2074},
	{Wavelength: 415, X: 0.07763, Y: 0.00218, Z: 0.3713},
	{Wavelength: 420, X: 0.13438, Y: 0.004, Z: 0.6456},
	{Wavelength: 425, X: 0.21477, Y: 0.0073, Z: 1.03905},
	{Wavelength: 430, X: 0.2839, Y: 0.0116, Z: 1.3856},
	{Wavelength: 435, X: 0.3285, Y: 0.01684, Z: 1.62296},
	{Wavelength: 440, X: 0.34828, Y: 0.023, Z: 1.74706},
	{Wavelength: 445, X: 0.34806, Y: 0.0298, Z: 1.7826},
	{Wavelength: 450, X: 0.3362, Y: 0.038, Z: 1.77211},
	{Wavelength: 455, X: 0.3187, Y: 0.048, Z: 1.7441},
	{Wavelength: 460, X: 0.2908, Y: 0.06, Z: 1.6692},
	{Wavelength: 465, X: 0.2511, Y: 0.0739, Z: 1.5281},
	{Wavelength: 470, X: 0.19536, Y: 0.09098, Z: 1.28764},
	{Wavelength: 475, X: 0.1421, Y: 0.1126, Z: 1.0419},
	{Wavelength: 480, X: 0.09564, Y: 0.13902, Z: 0.81295},
	{Wavelength: 485, X: 0.05795, Y: 0.1693, Z: 0.6162},
	{Wavelength: 490, X: 0.03201, Y: 0.20802, Z: 0.46518},
	{Wavelength: 495, X: 0.0147, Y: 0.2586, Z: 0.3533},
	{Wavelength: 500, X: 0.0049, Y: 0.323, Z: 0.272},
	{Wavelength: 505, X: 0.0024, Y: 0.4073, Z: 0.2123},
	{Wavelength: 510, X: 0.0093, Y: 0.503, Z: 0.1582},
	{Wavelength: 515, X: 0.0291, Y: 0.6082, Z: 0.1117},
	{Wavelength: 520, X: 0.06327, Y: 0.71, Z: 0.07825},
	{Wavelength: 525, X: 0.1096, Y: 0.7932, Z: 0.05725},
	{Wavelength: 530, X: 0.1655, Y: 0.862, Z: 0.04216},
	{Wavelength: 535, X: 0.22575, Y: 0.91485, Z: 0.02984},
	{Wavelength: 540, X: 0.2904, Y: 0.954, Z: 0.0203},
	{Wavelength: 545, X: 0.3597, Y: 0.9803, Z: 0.0134},
	{Wavelength: 550, X: 0.43345, Y: 0.99495, Z: 0.00875},
	{Wavelength: 555, X: 0.51205, Y: 1.0, Z: 0.00575},
	{Wavelength: 560, X: 0.5945, Y: 0.995, Z: 0.0039},
	{Wavelength: 565, X: 0.6784, Y: 0.9786, Z: 0.00275},
	{Wavelength: 570, X: 0.7621, Y: 0.952, Z: 0.0021},
	{Wavelength: 575, X: 0.8425, Y: 0.9154, Z: 0.0018},
	{Wavelength: 580, X: 0.9163, Y: 0.87, Z: 0.00165},
	{Wavelength: 585, X: 0.9786, Y: 0.8163, Z: 0.0014},
	{Wavelength: 590, X: 1.0263, Y: 0.757, Z: 0.0011},
	{Wavelength: 595, X: 1.0567, Y: 0.6949, Z: 0.001},
	{Wavelength: 600, X: 1.0622, Y: 0.631, Z: 0.0008},
	{Wavelength: 605, X: 1.0456, Y: 0.5668, Z: 0.0006},
	{Wavelength: 610, X: 1.0026, Y: 0.503, Z: 0.00034},
	{Wavelength: 615, X: 0.9384, Y: 0.4412, Z: 0.00024},
	{Wavelength: 620, X: 0.85445, Y: 0.381, Z: 0.00019},
	{Wavelength: 625, X: 0.7514, Y: 0.321, Z: 0.0001},
	{Wavelength: 630, X: 0.6424, Y: 0.265, Z: 0.00005},
	{Wavelength: 635, X: 0.5419, Y: 0.217, Z: 0.00003},
	{Wavelength: 640, X: 0.4479, Y: 0.175, Z: 0.00002},
	{Wavelength: 645, X: 0.3608, Y: 0.1382, Z: 0.00001},
	{Wavelength: 650, X: 0.2835, Y: 0.107, Z: 0},
	{Wavelength: 655, X: 0.2187, Y: 0.0816, Z: 0},
	{Wavelength: 660, X: 0.1649, Y: 0.061, Z: 0},
	{Wavelength: 665, X: 0.1212, Y: 0.04458, Z: 0},
	{Wavelength: 670, X: 0.0874, Y: 0.032, Z: 0},
	{Wavelength: 675, X: 0.0636, Y: 0.0232, Z: 0},
	{Wavelength: 680, X: 0.04677, Y: 0.017, Z: 0},
	{Wavelength: 685, X: 0.0329, Y: 0.01192, Z: 0},
	{Wavelength: 690, X: 0.0227, Y: 0.00821, Z: 0},
	{Wavelength: 695, X: 0.01584, Y: 0.005723, Z: 0},
	{Wavelength: 700, X: 0.011359, Y: 0.004102, Z: 0},
	{Wavelength: 705, X: 0.008111, Y: 0.002929, Z: 0},
	{Wavelength: 710, X: 0.00579, Y: 0.002091, Z: 0},
	{Wavelength: 715, X: 0.004109, Y: 0.001484, Z: 0},
	{Wavelength: 720, X: 0.002899, Y: 0.001047, Z: 0},
	{Wavelength: 725, X: 0.002049, Y: 0.00074, Z: 0},
	{Wavelength: 730, X: 0.00144, Y: 0.00052, Z: 0},
	{Wavelength: 735, X: 0.001, Y: 0.000361, Z: 0},
	{Wavelength: 740, X: 0.00069, Y: 0.000249, Z: 0},
	{Wavelength: 745, X: 0.000476, Y: 0.000172, Z: 0},
	{Wavelength: 750, X: 0.000332, Y: 0.00012, Z: 0},
	{Wavelength: 755, X: 0.000235, Y: 0.0000848, Z: 0},
	{Wavelength: 760, X: 0.000166, Y: 0.00006, Z: 0},
	{Wavelength: 765, X: 0.000117, Y: 0.0000424, Z: 0},
	{Wavelength: 770, X: 0.0000831, Y: 0.00003, Z: 0},
	{Wavelength: 775, X: 0.0000586, Y: 0.0000212, Z: 0},
	{Wavelength: 780, X: 0.000041, Y: 0.0000149, Z: 0},
	{Wavelength: 785, X: 0.0000293, Y: 0.0000106, Z: 0},
	{Wavelength: 790, X: 0.0000207, Y: 0.00000747, Z: 0},
	{Wavelength: 795, X: 0.0000146, Y: 0.00000526, Z: 0},
	{Wavelength: 800, X: 0.0000103, Y: 0.0000037, Z: 0},
	{Wavelength: 805, X: 0.00000726, Y: 0.00000262, Z: 0},
	{Wavelength: 810, X: 0.00000509, Y: 0.00000184, Z: 0},
	{Wavelength: 815, X: 0.00000358, Y: 0.0000013, Z: 0},
	{Wavelength: 820, X: 0.00000253, Y: 0.00000091, Z: 0},
	{Wavelength: 825, X: 0.00000179, Y: 0.00000064, Z: 0},
	{Wavelength: 830, X: 0.00000126, Y: 0.000000455, Z: 0},
}

// cie1964 holds the CIE 1964 10 degree standard observer at 5 nm.
var cie1964 = [...]MatchingFunction{
	{Wavelength: 360, X: 0.0000001222, Y: 0.000000013398, Z: 0.000000535027},
	{Wavelength: 365, X: 0.00000091927, Y: 0.00000010065, Z: 0.0000040283},
	{Wavelength: 370, X: 0.0000059586, Y: 0.0000006511, Z: 0.0000261437},
	{Wavelength: 375, X: 0.000033266, Y: 0.000003625, Z: 0.00014622},
	{Wavelength: 380, X: 0.000159952, Y: 0.000017364, Z: 0.000704776},
	{Wavelength: 385, X: 0.00066244, Y: 0.00007156, Z: 0.0029278},
	{Wavelength: 390, X: 0.0023616, Y: 0.0002534, Z: 0.0104822},
	{Wavelength: 395, X: 0.0072423, Y: 0.0007685, Z: 0.032344},
	{Wavelength: 400, X: 0.0191097, Y: 0.0020044, Z: 0.0860109},
	{Wavelength: 405, X: 0.0434, Y: 0.004509, Z: 0.19712},
	{Wavelength: 410, X: 0.084736, Y: 0.008756, Z: 0.389366},
	{Wavelength: 415, X: 0.140638, Y: 0.014456, Z: 0.65676},
	{Wavelength: 420, X: 0.204492, Y: 0.021391, Z: 0.972542},
	{Wavelength: 425, X: 0.264737, Y: 0.029497, Z: 1.2825},
	{Wavelength: 430, X: 0.314679, Y: 0.038676, Z: 1.55348},
	{Wavelength: 435, X: 0.357719, Y: 0.049602, Z: 1.7985},
	{Wavelength: 440, X: 0.383734, Y: 0.062077, Z: 1.96728},
	{Wavelength: 445, X: 0.386726, Y: 0.074704, Z: 2.0273},
	{Wavelength: 450, X: 0.370702, Y: 0.089456, Z: 1.9948},
	{Wavelength: 455, X: 0.342957, Y: 0.106256, Z: 1.9007},
	{Wavelength: 460, X: 0.302273, Y: 0.128201, Z: 1.74537},
	{Wavelength: 465, X: 0.254085, Y: 0.152761, Z: 1.5549},
	{Wavelength: 470, X: 0.195618, Y: 0.18519, Z: 1.31756},
	{Wavelength: 475, X: 0.132349, Y: 0.21994, Z: 1.0302},
	{Wavelength: 480, X: 0.080507, Y: 0.253589, Z: 0.772125},
	{Wavelength: 485, X: 0.041072, Y: 0.297665, Z: 0.57006},
	{Wavelength: 490, X: 0.016172, Y: 0.339133, Z: 0.415254},
	{Wavelength: 495, X: 0.005132, Y: 0.395379, Z: 0.302356},
	{Wavelength: 500, X: 0.003816, Y: 0.460777, Z: 0.218502},
	{Wavelength: 505, X: 0.015444, Y: 0.53136, Z: 0.159249},
	{Wavelength: 510, X: 0.037465, Y: 0.606741, Z: 0.112044},
	{Wavelength: 515, X: 0.071358, Y: 0.68566, Z: 0.082248},
	{Wavelength: 520, X: 0.117749, Y: 0.761757, Z: 0.060709},
	{Wavelength: 525, X: 0.172953, Y: 0.82333, Z: 0.04305},
	{Wavelength: 530, X: 0.236491, Y: 0.875211, Z: 0.030451},
	{Wavelength: 535, X: 0.304213, Y: 0.92381, Z: 0.020584},
	{Wavelength: 540, X: 0.376772, Y: 0.961988, Z: 0.013676},
	{Wavelength: 545, X: 0.451584, Y: 0.9822, Z: 0.007918},
	{Wavelength: 550, X: 0.529826, Y: 0.991761, Z: 0.003988},
	{Wavelength: 555, X: 0.616053, Y: 0.99911, Z: 0.001091},
	{Wavelength: 560, X: 0.705224, Y: 0.99734, Z: 0},
	{Wavelength: 565, X: 0.793832, Y: 0.98238, Z: 0},
	{Wavelength: 570, X: 0.878655, Y: 0.955552, Z: 0},
	{Wavelength: 575, X: 0.951162, Y: 0.915175, Z: 0},
	{Wavelength: 580, X: 1.01416, Y: 0.868934, Z: 0},
	{Wavelength: 585, X: 1.0743, Y: 0.825623, Z: 0},
	{Wavelength: 590, X: 1.11852, Y: 0.777405, Z: 0},
	{Wavelength: 595, X: 1.1343, Y: 0.720353, Z: 0},
	{Wavelength: 600, X: 1.12399, Y: 0.658341, Z: 0},
	{Wavelength: 605, X: 1.0891, Y: 0.593878, Z: 0},
	{Wavelength: 610, X: 1.03048, Y: 0.527963, Z: 0},
	{Wavelength: 615, X: 0.95074, Y: 0.461834, Z: 0},
	{Wavelength: 620, X: 0.856297, Y: 0.398057, Z: 0},
	{Wavelength: 625, X: 0.75493, Y: 0.339554, Z: 0},
	{Wavelength: 630, X: 0.647467, Y: 0.283493, Z: 0},
	{Wavelength: 635, X: 0.53511, Y: 0.228254, Z: 0},
	{Wavelength: 640, X: 0.431567, Y: 0.179828, Z: 0},
	{Wavelength: 645, X: 0.34369, Y: 0.140211, Z: 0},
	{Wavelength: 650, X: 0.268329, Y: 0.107633, Z: 0},
	{Wavelength: 655, X: 0.2043, Y: 0.081187, Z: 0},
	{Wavelength: 660, X: 0.152568, Y: 0.060281, Z: 0},
	{Wavelength: 665, X: 0.11221, Y: 0.044096, Z: 0},
	{Wavelength: 670, X: 0.0812606, Y: 0.0318004, Z: 0},
	{Wavelength: 675, X: 0.05793, Y: 0.0226017, Z: 0},
	{Wavelength: 680, X: 0.0408508, Y: 0.0159051, Z: 0},
	{Wavelength: 685, X: 0.028623, Y: 0.0111303, Z: 0},
	{Wavelength: 690, X: 0.0199413, Y: 0.0077488, Z: 0},
	{Wavelength: 695, X: 0.013842, Y: 0.0053751, Z: 0},
	{Wavelength: 700, X: 0.00957688, Y: 0.00371774, Z: 0},
	{Wavelength: 705, X: 0.0066052, Y: 0.00256456, Z: 0},
	{Wavelength: 710, X: 0.00455263, Y: 0.00176847, Z: 0},
	{Wavelength: 715, X: 0.0031447, Y: 0.00122239, Z: 0},
	{Wavelength: 720, X: 0.00217496, Y: 0.00084619, Z: 0},
	{Wavelength: 725, X: 0.0015057, Y: 0.00058644, Z: 0},
	{Wavelength: 730, X: 0.00104476, Y: 0.00040741, Z: 0},
	{Wavelength: 735, X: 0.00072745, Y: 0.000284041, Z: 0},
	{Wavelength: 740, X: 0.000508258, Y: 0.00019873, Z: 0},
	{Wavelength: 745, X: 0.00035638, Y: 0.00013955, Z: 0},
	{Wavelength: 750, X: 0.000250969, Y: 0.000098428, Z: 0},
	{Wavelength: 755, X: 0.00017773, Y: 0.000069804, Z: 0},
	{Wavelength: 760, X: 0.00012639, Y: 0.000049718, Z: 0},
	{Wavelength: 765, X: 0.000090276, Y: 0.000035553, Z: 0},
	{Wavelength: 770, X: 0.000064714, Y: 0.000025524, Z: 0},
	{Wavelength: 775, X: 0.00004655, Y: 0.000018385, Z: 0},
	{Wavelength: 780, X: 0.000033599, Y: 0.000013287, Z: 0},
	{Wavelength: 785, X: 0.000024338, Y: 0.000009636, Z: 0},
	{Wavelength: 790, X: 0.000017689, Y: 0.0000070102, Z: 0},
	{Wavelength: 795, X: 0.000012899, Y: 0.000005116, Z: 0},
	{Wavelength: 800, X: 0.0000094352, Y: 0.000003744, Z: 0},
	{Wavelength: 805, X: 0.0000069227, Y: 0.000002748, Z: 0},
	{Wavelength: 810, X: 0.0000050948, Y: 0.000002023, Z: 0},
	{Wavelength: 815, X: 0.0000037572, Y: 0.000001492, Z: 0},
	{Wavelength: 820, X: 0.0000027795, Y: 0.000001104, Z: 0},
	{Wavelength: 825, X: 0.0000020633, Y: 0.000000819, Z: 0},
	{Wavelength: 830, X: 0.0000015364, Y: 0.00000061, Z: 0},
}
